package catalog

import (
	"context"
	"testing"

	"github.com/halvard/fehu/internal/models"
)

func sample() []models.Product {
	return []models.Product{
		{ID: 1, Title: "Basic Widget", Price: 15.00, CreatedAt: "2024-01-10T00:00:00Z"},
		{ID: 2, Title: "Pro Widget", Price: 45.00, CreatedAt: "2024-02-20T00:00:00Z"},
		{ID: 3, Title: "gadget", Price: 20.00, CreatedAt: "2024-03-05T00:00:00Z"},
		{ID: 4, Title: "Apparatus", Price: 99.99, CreatedAt: "2024-01-01T00:00:00Z"},
	}
}

func ids(products []models.Product) []int {
	out := make([]int, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterMinPrice(t *testing.T) {
	min := 20.0
	got := applyFilters(sample(), Query{MinPrice: &min})
	if !equalIDs(ids(got), []int{2, 3, 4}) {
		t.Errorf("min_price=20 -> %v", ids(got))
	}
}

func TestFilterPriceRange(t *testing.T) {
	min, max := 15.0, 45.0
	got := applyFilters(sample(), Query{MinPrice: &min, MaxPrice: &max})
	// Bounds are inclusive on both ends.
	if !equalIDs(ids(got), []int{1, 2, 3}) {
		t.Errorf("price 15..45 -> %v", ids(got))
	}
}

func TestFilterDateRange(t *testing.T) {
	got := applyFilters(sample(), Query{
		DateFrom: "2024-01-10T00:00:00Z",
		DateTo:   "2024-02-20T00:00:00Z",
	})
	if !equalIDs(ids(got), []int{1, 2}) {
		t.Errorf("date range -> %v", ids(got))
	}
}

func TestFilterSearch(t *testing.T) {
	got := applyFilters(sample(), Query{Search: "WIDGET"})
	if !equalIDs(ids(got), []int{1, 2}) {
		t.Errorf("search widget -> %v", ids(got))
	}
}

func TestFiltersAreConjunctive(t *testing.T) {
	min := 20.0
	got := applyFilters(sample(), Query{MinPrice: &min, Search: "widget"})
	if !equalIDs(ids(got), []int{2}) {
		t.Errorf("min_price + search -> %v", ids(got))
	}
}

func TestSortVariants(t *testing.T) {
	cases := []struct {
		sortBy, order string
		want          []int
	}{
		{"id", "asc", []int{1, 2, 3, 4}},
		{"id", "desc", []int{4, 3, 2, 1}},
		{"price", "asc", []int{1, 3, 2, 4}},
		{"price", "desc", []int{4, 2, 3, 1}},
		{"title", "asc", []int{4, 1, 3, 2}}, // case-insensitive: gadget before Pro
		{"created_at", "asc", []int{4, 1, 2, 3}},
		{"created_at", "desc", []int{3, 2, 1, 4}},
		{"bogus", "asc", []int{1, 2, 3, 4}}, // unknown key falls back to id
		{"id", "sideways", []int{1, 2, 3, 4}},
	}
	for _, tc := range cases {
		products := sample()
		applySort(products, tc.sortBy, tc.order)
		if !equalIDs(ids(products), tc.want) {
			t.Errorf("sort %s/%s -> %v, want %v", tc.sortBy, tc.order, ids(products), tc.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	products := sample()

	page, pg := paginate(products, 1, 3)
	if !equalIDs(ids(page), []int{1, 2, 3}) {
		t.Errorf("page 1 -> %v", ids(page))
	}
	if pg.TotalItems != 4 || pg.TotalPages != 2 || !pg.HasNext || pg.HasPrev {
		t.Errorf("page 1 meta = %+v", pg)
	}

	page, pg = paginate(products, 2, 3)
	if !equalIDs(ids(page), []int{4}) {
		t.Errorf("page 2 -> %v", ids(page))
	}
	if pg.HasNext || !pg.HasPrev {
		t.Errorf("page 2 meta = %+v", pg)
	}
}

func TestPaginateClamping(t *testing.T) {
	products := sample()

	// Page below 1 clamps to 1.
	page, pg := paginate(products, 0, 2)
	if pg.CurrentPage != 1 || len(page) != 2 {
		t.Errorf("page 0 -> current %d, %d items", pg.CurrentPage, len(page))
	}

	// Oversized per_page clamps to the cap.
	_, pg = paginate(products, 1, 5000)
	if pg.PerPage != MaxPerPage {
		t.Errorf("per_page = %d, want %d", pg.PerPage, MaxPerPage)
	}

	// Past-the-end page yields an empty slice, not an error.
	page, pg = paginate(products, 99, 2)
	if len(page) != 0 {
		t.Errorf("page 99 -> %d items, want 0", len(page))
	}
	if pg.CurrentPage != 99 || pg.HasNext {
		t.Errorf("page 99 meta = %+v", pg)
	}
}

func TestPaginateEmpty(t *testing.T) {
	page, pg := paginate(nil, 1, 10)
	if len(page) != 0 || pg.TotalPages != 0 || pg.HasNext || pg.HasPrev {
		t.Errorf("empty set -> %v, %+v", page, pg)
	}
}

func TestListAppliesDefaults(t *testing.T) {
	svc := testService(t)
	for _, title := range []string{"c-item", "a-item", "b-item"} {
		mustCreate(t, svc, title, 1)
	}
	svc.SetDefaults("desc", 2)

	items, pg := svc.List(context.Background(), Query{SortBy: "title"})
	if pg.PerPage != 2 {
		t.Errorf("default per_page = %d, want 2", pg.PerPage)
	}
	if len(items) != 2 || items[0].Title != "c-item" {
		t.Errorf("default order should be desc, got %v", ids(items))
	}

	// Explicit order wins over the default.
	items, _ = svc.List(context.Background(), Query{SortBy: "title", Order: "asc"})
	if items[0].Title != "a-item" {
		t.Errorf("explicit asc ignored, first = %q", items[0].Title)
	}
}
