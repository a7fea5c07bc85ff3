package app

import (
	"context"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/notify"
)

// NopNotifier drops every message. It is used when no chat is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) error { return nil }

var _ notify.Notifier = NopNotifier{}
