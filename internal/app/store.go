package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

func getDoc(ctx context.Context, s record.Store, c record.Collection, id string) (record.Document, error) {
	doc, err := s.GetByID(ctx, c, id)
	if errors.Is(err, record.ErrNotFound) {
		return nil, fmt.Errorf("%s/%s: %w", c, id, record.ErrNotFound)
	}
	if err != nil {
		return nil, &TransportError{Op: "get", Collection: c, Err: err}
	}
	return doc, nil
}

func getInto(ctx context.Context, s record.Store, c record.Collection, id string, v interface{}) error {
	doc, err := getDoc(ctx, s, c, id)
	if err != nil {
		return err
	}
	if err := record.Decode(doc, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", c, id, err)
	}
	return nil
}

func put(ctx context.Context, s record.Store, c record.Collection, id string, v interface{}) error {
	doc, err := record.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c, id, err)
	}
	if err := s.Upsert(ctx, c, id, doc); err != nil {
		return &TransportError{Op: "upsert", Collection: c, Err: err}
	}
	return nil
}

func insert(ctx context.Context, s record.Store, c record.Collection, v interface{}) (string, error) {
	doc, err := record.Encode(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", c, err)
	}
	delete(doc, record.FieldID)
	id, err := s.Insert(ctx, c, doc)
	if err != nil {
		return "", &TransportError{Op: "insert", Collection: c, Err: err}
	}
	return id, nil
}

func remove(ctx context.Context, s record.Store, c record.Collection, id string) error {
	if err := s.Delete(ctx, c, id); err != nil {
		return &TransportError{Op: "delete", Collection: c, Err: err}
	}
	return nil
}

func listInto[T any](ctx context.Context, s record.Store, c record.Collection) ([]T, error) {
	docs, err := s.ListAll(ctx, c)
	if err != nil {
		return nil, &TransportError{Op: "list", Collection: c, Err: err}
	}
	out, err := record.DecodeAll[T](docs)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", c, err)
	}
	return out, nil
}

func listWhereInto[T any](ctx context.Context, s record.Store, c record.Collection, field string, value interface{}) ([]T, error) {
	docs, err := s.ListWhere(ctx, c, field, value)
	if err != nil {
		return nil, &TransportError{Op: "list", Collection: c, Err: err}
	}
	out, err := record.DecodeAll[T](docs)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", c, err)
	}
	return out, nil
}
