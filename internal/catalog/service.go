// Package catalog implements the product CRUD service and the in-memory
// query engine over the JSON document store.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/halvard/fehu/internal/apperr"
	"github.com/halvard/fehu/internal/models"
	"github.com/halvard/fehu/internal/storage"
)

// ProductInput is the strongly-typed mutation payload. Nil fields are
// "not provided": Create treats them as empty (and rejects via
// validation), Update keeps the existing value.
type ProductInput struct {
	Title *string
	Price *float64
}

// ChangeFunc is invoked after every successful mutation.
// kind is one of "created", "updated", "deleted".
type ChangeFunc func(kind string, id int)

// Service coordinates the document store and the query engine. Every
// operation re-reads the document from disk; there is no cross-call cache,
// so external edits of the file are always picked up.
type Service struct {
	store  storage.Store
	logger *slog.Logger

	defaultOrder   string
	defaultPerPage int
	onChange       ChangeFunc
}

// NewService creates a catalog service with the shipped defaults
// (ascending order, 10 items per page).
func NewService(store storage.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:          store,
		logger:         logger,
		defaultOrder:   "asc",
		defaultPerPage: 10,
	}
}

// SetDefaults overrides the fallback sort order and page size used when a
// query leaves them unset.
func (s *Service) SetDefaults(order string, perPage int) {
	if strings.EqualFold(order, "desc") {
		s.defaultOrder = "desc"
	} else {
		s.defaultOrder = "asc"
	}
	if perPage >= 1 && perPage <= MaxPerPage {
		s.defaultPerPage = perPage
	}
}

// OnChange registers a callback fired after successful mutations.
func (s *Service) OnChange(fn ChangeFunc) {
	s.onChange = fn
}

// List loads the full record set and applies filters, sort, and paging.
// Storage read failures degrade to an empty result with empty pagination:
// the catalog renders as "no products" rather than failing the page.
func (s *Service) List(_ context.Context, q Query) ([]models.Product, Pagination) {
	doc, err := s.store.Read()
	if err != nil {
		s.logger.Warn("catalog: list degraded to empty result", slog.String("error", err.Error()))
		return []models.Product{}, Pagination{}
	}

	order := q.Order
	if !strings.EqualFold(order, "asc") && !strings.EqualFold(order, "desc") {
		order = s.defaultOrder
	}
	if q.PerPage == 0 {
		q.PerPage = s.defaultPerPage
	}

	filtered := applyFilters(doc.Products, q)
	applySort(filtered, q.SortBy, order)
	return paginate(filtered, q.Page, q.PerPage)
}

// Search returns every product whose title contains q, case-insensitively.
// Like List, it degrades to an empty slice on storage failure.
func (s *Service) Search(_ context.Context, query string) []models.Product {
	doc, err := s.store.Read()
	if err != nil {
		s.logger.Warn("catalog: search degraded to empty result", slog.String("error", err.Error()))
		return []models.Product{}
	}
	if strings.TrimSpace(query) == "" {
		return doc.Products
	}
	return applyFilters(doc.Products, Query{Search: query})
}

// Count returns the total number of records, 0 on storage failure.
func (s *Service) Count(_ context.Context) int {
	doc, err := s.store.Read()
	if err != nil {
		return 0
	}
	return len(doc.Products)
}

// Get returns the product with the given id, or ErrNotFound.
func (s *Service) Get(_ context.Context, id int) (models.Product, error) {
	doc, err := s.store.Read()
	if err != nil {
		return models.Product{}, err
	}
	for _, p := range doc.Products {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, fmt.Errorf("catalog: product %d: %w", id, apperr.ErrNotFound)
}

// Create validates in, assigns the document's next_id, and appends the new
// record in one whole-document rewrite. Client-supplied ids are ignored:
// the store alone assigns ids, and next_id never decreases, so ids are
// never reused even after deletes.
func (s *Service) Create(ctx context.Context, in ProductInput) (models.Product, error) {
	doc, err := s.store.Read()
	if err != nil {
		return models.Product{}, err
	}

	title := ""
	if in.Title != nil {
		title = *in.Title
	}
	price := 0.0
	if in.Price != nil {
		price = *in.Price
	}

	p, err := models.NewProduct(doc.NextID, title, price, "")
	if err != nil {
		return models.Product{}, err
	}

	doc.Products = append(doc.Products, p)
	doc.NextID++

	if err := s.store.Write(ctx, doc); err != nil {
		return models.Product{}, err
	}
	s.notify("created", p.ID)
	return p, nil
}

// Update replaces the provided fields of an existing record and rewrites
// the document. ID and created_at always survive; absent fields keep
// their current value.
func (s *Service) Update(ctx context.Context, id int, in ProductInput) (models.Product, error) {
	doc, err := s.store.Read()
	if err != nil {
		return models.Product{}, err
	}

	for i, existing := range doc.Products {
		if existing.ID != id {
			continue
		}

		title := existing.Title
		if in.Title != nil {
			title = *in.Title
		}
		price := existing.Price
		if in.Price != nil {
			price = *in.Price
		}

		updated, err := models.NewProduct(existing.ID, title, price, existing.CreatedAt)
		if err != nil {
			return models.Product{}, err
		}

		doc.Products[i] = updated
		if err := s.store.Write(ctx, doc); err != nil {
			return models.Product{}, err
		}
		s.notify("updated", id)
		return updated, nil
	}

	return models.Product{}, fmt.Errorf("catalog: product %d: %w", id, apperr.ErrNotFound)
}

// Delete removes a record and rewrites the document. The freed id is
// never handed out again because next_id is left untouched.
func (s *Service) Delete(ctx context.Context, id int) error {
	doc, err := s.store.Read()
	if err != nil {
		return err
	}

	for i, p := range doc.Products {
		if p.ID != id {
			continue
		}
		doc.Products = append(doc.Products[:i], doc.Products[i+1:]...)
		if err := s.store.Write(ctx, doc); err != nil {
			return err
		}
		s.notify("deleted", id)
		return nil
	}

	return fmt.Errorf("catalog: product %d: %w", id, apperr.ErrNotFound)
}

func (s *Service) notify(kind string, id int) {
	if s.onChange != nil {
		s.onChange(kind, id)
	}
}
