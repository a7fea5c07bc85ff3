package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/infra/config"
)

// Log is the global logger instance
var Log = logrus.New()

const service = "admin-console"

// Init configures the global logger from the application configuration.
func Init(cfg *config.AppConfig) {
	Configure(Log, os.Stdout, cfg)
	Log.WithFields(logrus.Fields{
		"level":       Log.GetLevel().String(),
		"environment": cfg.Environment,
		"store":       cfg.StoreDriver,
	}).Info("Logger initialized")
}

// Configure applies level and format settings to l. Structured JSON is used
// outside development so log shippers can index the transition fields.
func Configure(l *logrus.Logger, out io.Writer, cfg *config.AppConfig) {
	l.SetOutput(out)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		l.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	l.SetReportCaller(level >= logrus.DebugLevel)

	if env := strings.ToLower(cfg.Environment); env == "production" || env == "staging" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg: "message",
			},
		})
		return
	}
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// Component returns a child logger tagged with the service and component name.
func Component(name string) *logrus.Entry {
	return Log.WithFields(logrus.Fields{
		"service":   service,
		"component": name,
	})
}
