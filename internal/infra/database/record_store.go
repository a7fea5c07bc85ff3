package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

// ErrDuplicateID is returned by Insert when the generated id already exists.
var ErrDuplicateID = errors.New("record with this id already exists")

const uniqueViolation = "23505"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresRecordStore keeps every collection in one JSONB table keyed by
// (collection, id). Rows are listed in insertion order.
type PostgresRecordStore struct {
	db *sql.DB
	q  querier
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db, q: db}
}

func (r *PostgresRecordStore) ListAll(ctx context.Context, c record.Collection) ([]record.Document, error) {
	query := `SELECT id, fields FROM records WHERE collection = $1 ORDER BY seq`
	return r.list(ctx, query, string(c))
}

// ListWhere matches top-level fields through JSONB containment so the GIN
// index on fields can serve it.
func (r *PostgresRecordStore) ListWhere(ctx context.Context, c record.Collection, field string, value interface{}) ([]record.Document, error) {
	filter, err := json.Marshal(map[string]interface{}{field: value})
	if err != nil {
		return nil, fmt.Errorf("error encoding filter on %s: %w", field, err)
	}
	query := `SELECT id, fields FROM records WHERE collection = $1 AND fields @> $2::jsonb ORDER BY seq`
	return r.list(ctx, query, string(c), string(filter))
}

func (r *PostgresRecordStore) list(ctx context.Context, query string, args ...interface{}) ([]record.Document, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing records: %w", err)
	}
	defer rows.Close()

	docs := []record.Document{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("error scanning record: %w", err)
		}
		doc, err := decode(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return docs, nil
}

func (r *PostgresRecordStore) GetByID(ctx context.Context, c record.Collection, id string) (record.Document, error) {
	query := `SELECT fields FROM records WHERE collection = $1 AND id = $2`
	var raw []byte
	err := r.q.QueryRowContext(ctx, query, string(c), id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, record.ErrNotFound
		}
		return nil, fmt.Errorf("error getting record %s/%s: %w", c, id, err)
	}
	return decode(id, raw)
}

func (r *PostgresRecordStore) Upsert(ctx context.Context, c record.Collection, id string, fields record.Document) error {
	raw, err := encode(id, fields)
	if err != nil {
		return err
	}
	query := `INSERT INTO records (collection, id, fields)
               VALUES ($1, $2, $3)
               ON CONFLICT (collection, id) DO UPDATE
               SET fields = EXCLUDED.fields, updated_at = NOW()`
	if _, err := r.q.ExecContext(ctx, query, string(c), id, string(raw)); err != nil {
		return fmt.Errorf("error upserting record %s/%s: %w", c, id, err)
	}
	return nil
}

func (r *PostgresRecordStore) Insert(ctx context.Context, c record.Collection, fields record.Document) (string, error) {
	id := uuid.NewString()
	raw, err := encode(id, fields)
	if err != nil {
		return "", err
	}
	query := `INSERT INTO records (collection, id, fields) VALUES ($1, $2, $3)`
	if _, err := r.q.ExecContext(ctx, query, string(c), id, string(raw)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", ErrDuplicateID
		}
		return "", fmt.Errorf("error inserting record into %s: %w", c, err)
	}
	return id, nil
}

func (r *PostgresRecordStore) Delete(ctx context.Context, c record.Collection, id string) error {
	query := `DELETE FROM records WHERE collection = $1 AND id = $2`
	if _, err := r.q.ExecContext(ctx, query, string(c), id); err != nil {
		return fmt.Errorf("error deleting record %s/%s: %w", c, id, err)
	}
	return nil
}

// WithinTx runs fn against a store bound to one database transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *PostgresRecordStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx record.Store) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	if err := fn(ctx, &PostgresRecordStore{db: r.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func encode(id string, fields record.Document) ([]byte, error) {
	doc := make(record.Document, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	doc[record.FieldID] = id
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error encoding record %s: %w", id, err)
	}
	return raw, nil
}

func decode(id string, raw []byte) (record.Document, error) {
	doc := record.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("error decoding record %s: %w", id, err)
	}
	doc[record.FieldID] = id
	return doc, nil
}

var (
	_ record.Store         = (*PostgresRecordStore)(nil)
	_ record.Transactional = (*PostgresRecordStore)(nil)
)
