// Package models defines the domain types for Fehu.
package models

import "time"

// Limits enforced on product fields.
const (
	TitleMaxLen = 255
	PriceMax    = 999999.99
)

// SchemaVersion is the on-disk document schema version.
const SchemaVersion = "1.0"

// Product is a single catalog record.
//
// Product values are immutable by convention: the With* methods copy, and
// nothing mutates a Product after construction. ID and CreatedAt are set once
// (by the store's create path) and survive every update.
type Product struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	CreatedAt string  `json:"created_at"` // RFC3339, UTC
}

// WithTitle returns a copy with the title replaced.
func (p Product) WithTitle(title string) Product {
	p.Title = title
	return p
}

// WithPrice returns a copy with the price replaced.
func (p Product) WithPrice(price float64) Product {
	p.Price = price
	return p
}

// WithID returns a copy with the id replaced.
func (p Product) WithID(id int) Product {
	p.ID = id
	return p
}

// WithCreatedAt returns a copy with the creation timestamp replaced.
func (p Product) WithCreatedAt(createdAt string) Product {
	p.CreatedAt = createdAt
	return p
}

// Metadata is the document bookkeeping block.
type Metadata struct {
	CreatedAt    string `json:"created_at"`
	LastModified string `json:"last_modified"`
	Version      string `json:"version"`
}

// Document is the entire on-disk catalog: the unit of atomicity.
// Every mutation reads the whole document, applies one change, and
// rewrites the whole document.
type Document struct {
	Products []Product `json:"products"`
	NextID   int       `json:"next_id"`
	Metadata Metadata  `json:"metadata"`
}

// DefaultDocument returns the empty bootstrap document.
func DefaultDocument(now time.Time) *Document {
	ts := Timestamp(now)
	return &Document{
		Products: []Product{},
		NextID:   1,
		Metadata: Metadata{
			CreatedAt:    ts,
			LastModified: ts,
			Version:      SchemaVersion,
		},
	}
}

// Timestamp formats t the way the document stores timestamps.
// RFC3339 in UTC sorts lexicographically in chronological order, which the
// date filters and created_at sort rely on.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
