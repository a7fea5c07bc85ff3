package app

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/search"
)

// SearchCollections are scanned by the console search box, in result order.
var SearchCollections = []record.Collection{
	record.Leads,
	record.FollowUps,
	record.Payments,
	record.AdvancePayments,
	record.Deleted,
	record.Students,
	record.Debts,
}

// timestamp fields in order of preference.
var entryTimeFields = []string{"created_at", "enrolled_at", "payment_date", "paid_at", "deleted_at", "follow_up_at", "updated_at"}

// SearchService answers name and phone queries from a fresh snapshot of the
// searchable collections. It never writes.
type SearchService struct {
	store record.Store
	log   logrus.FieldLogger
}

func NewSearchService(store record.Store, log logrus.FieldLogger) *SearchService {
	return &SearchService{store: store, log: log}
}

// Search returns the entries matching query. Queries shorter than
// search.MinQueryLen return nothing without reading the store.
func (s *SearchService) Search(ctx context.Context, query string) ([]search.Entry, error) {
	if !search.Searchable(query) {
		return nil, nil
	}
	ix, err := s.BuildIndex(ctx)
	if err != nil {
		return nil, err
	}
	found := ix.Query(query)
	s.log.WithFields(logrus.Fields{"indexed": ix.Len(), "found": len(found)}).Debug("Search finished")
	return found, nil
}

// BuildIndex reads every searchable collection concurrently and projects the
// documents into search entries.
func (s *SearchService) BuildIndex(ctx context.Context) (*search.Index, error) {
	parts := make([][]search.Entry, len(SearchCollections))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range SearchCollections {
		i, c := i, c
		g.Go(func() error {
			docs, err := s.store.ListAll(gctx, c)
			if err != nil {
				return &TransportError{Op: "list", Collection: c, Err: err}
			}
			entries := make([]search.Entry, 0, len(docs))
			for _, doc := range docs {
				entries = append(entries, toEntry(c, doc))
			}
			parts[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []search.Entry
	for _, p := range parts {
		all = append(all, p...)
	}
	return search.NewIndex(all), nil
}

func toEntry(c record.Collection, doc record.Document) search.Entry {
	full := field(doc, "full_name")
	first, last := "", ""
	if surname := field(doc, "surname"); surname != "" {
		first, last = field(doc, "name"), surname
		if full == "" {
			full = strings.TrimSpace(first + " " + last)
		}
	} else if full == "" {
		full = field(doc, "name")
	}

	var phones []string
	for _, key := range []string{"phone", "secondary_contact"} {
		if p := field(doc, key); p != "" {
			phones = append(phones, p)
		}
	}

	e := search.Entry{
		ID:         doc.ID(),
		Collection: c,
		FullName:   full,
		Names:      search.NameVariants(full, first, last),
		Phones:     phones,
	}
	for _, key := range entryTimeFields {
		if t, err := time.Parse(time.RFC3339Nano, field(doc, key)); err == nil {
			e.At = t
			break
		}
	}
	return e
}

func field(doc record.Document, key string) string {
	if v, ok := doc[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
