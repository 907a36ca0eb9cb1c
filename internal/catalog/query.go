package catalog

import (
	"sort"
	"strings"

	"github.com/halvard/fehu/internal/models"
)

// Query carries the optional filter, sort, and paging parameters of a
// list request. Filters are conjunctive. Nil/zero fields mean "not set".
type Query struct {
	MinPrice *float64 // inclusive lower price bound
	MaxPrice *float64 // inclusive upper price bound
	DateFrom string   // inclusive RFC3339 lower bound on created_at
	DateTo   string   // inclusive RFC3339 upper bound on created_at
	Search   string   // case-insensitive substring match on title

	SortBy string // id | title | price | created_at (invalid -> id)
	Order  string // asc | desc, case-insensitive

	Page    int // clamped to >= 1
	PerPage int // clamped to [1, 100]
}

// Pagination describes the page that was returned.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PerPage     int  `json:"per_page"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// MaxPerPage caps the page size.
const MaxPerPage = 100

func applyFilters(products []models.Product, q Query) []models.Product {
	out := make([]models.Product, 0, len(products))
	search := strings.ToLower(strings.TrimSpace(q.Search))
	for _, p := range products {
		if q.MinPrice != nil && p.Price < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && p.Price > *q.MaxPrice {
			continue
		}
		// RFC3339 UTC strings order chronologically, so plain string
		// comparison is the date comparison.
		if q.DateFrom != "" && p.CreatedAt < q.DateFrom {
			continue
		}
		if q.DateTo != "" && p.CreatedAt > q.DateTo {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func applySort(products []models.Product, sortBy, order string) {
	switch sortBy {
	case "id", "title", "price", "created_at":
	default:
		sortBy = "id"
	}
	desc := strings.EqualFold(order, "desc")

	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if desc {
			a, b = b, a
		}
		switch sortBy {
		case "title":
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		case "price":
			return a.Price < b.Price
		case "created_at":
			return a.CreatedAt < b.CreatedAt
		default:
			return a.ID < b.ID
		}
	})
}

func paginate(products []models.Product, page, perPage int) ([]models.Product, Pagination) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	total := len(products)
	totalPages := (total + perPage - 1) / perPage

	offset := (page - 1) * perPage
	var pageItems []models.Product
	if offset < total {
		end := offset + perPage
		if end > total {
			end = total
		}
		pageItems = products[offset:end]
	} else {
		pageItems = []models.Product{}
	}

	return pageItems, Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}
