package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/halvard/fehu/internal/apperr"
)

// titleCharset is the allow-list applied after sanitization: Unicode
// letters and digits, space, hyphen, underscore, dot.
var titleCharset = regexp.MustCompile(`^[\p{L}\p{N} ._\-]+$`)

// NewProduct sanitizes and validates raw field input and constructs a
// Product. The title is sanitized before the rules run; the price is
// rounded to two decimals before the bounds check. If createdAt is empty
// the current time is stamped. Violations come back as a field-tagged
// *apperr.ValidationError carrying every failing field.
func NewProduct(id int, rawTitle string, rawPrice float64, createdAt string) (Product, error) {
	title := SanitizeTitle(rawTitle)
	price := Round2(rawPrice)
	if createdAt == "" {
		createdAt = Timestamp(time.Now())
	}

	errs := validation.Errors{
		"title": validation.Validate(title,
			validation.Required.Error("title must not be empty"),
			validation.RuneLength(1, TitleMaxLen).Error(fmt.Sprintf("title must be between 1 and %d characters", TitleMaxLen)),
			validation.Match(titleCharset).Error("title may only contain letters, digits, spaces, hyphens, underscores and dots"),
		),
		"price": validation.Validate(price,
			validation.Min(0.01).Error("price must be greater than zero"),
			validation.Max(PriceMax).Error(fmt.Sprintf("price must not exceed %.2f", PriceMax)),
		),
	}.Filter()
	if errs != nil {
		return Product{}, toValidationError(errs.(validation.Errors))
	}

	return Product{
		ID:        id,
		Title:     title,
		Price:     price,
		CreatedAt: createdAt,
	}, nil
}

// toValidationError flattens ozzo's field->error map into the app
// taxonomy, with deterministic field ordering.
func toValidationError(errs validation.Errors) *apperr.ValidationError {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	ve := &apperr.ValidationError{}
	for _, f := range fields {
		ve.Add(f, errs[f].Error())
	}
	return ve
}

// Validate checks the document's structural integrity: required
// bookkeeping present, next_id sane and ahead of every assigned id, and
// every record carrying the required fields with plausible values. It is
// the shared gate for both read and write paths.
func (d *Document) Validate() error {
	if d.NextID < 1 {
		return fmt.Errorf("next_id must be >= 1, got %d", d.NextID)
	}
	if d.Metadata.CreatedAt == "" || d.Metadata.LastModified == "" || d.Metadata.Version == "" {
		return fmt.Errorf("metadata is missing required fields")
	}
	seen := make(map[int]struct{}, len(d.Products))
	for i, p := range d.Products {
		if p.ID < 1 {
			return fmt.Errorf("product %d: id must be >= 1, got %d", i, p.ID)
		}
		if p.ID >= d.NextID {
			return fmt.Errorf("product %d: id %d is not below next_id %d", i, p.ID, d.NextID)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("product %d: duplicate id %d", i, p.ID)
		}
		seen[p.ID] = struct{}{}
		if strings.TrimSpace(p.Title) == "" {
			return fmt.Errorf("product %d: title is blank", i)
		}
		if p.Price < 0 {
			return fmt.Errorf("product %d: price is negative", i)
		}
		if p.CreatedAt == "" {
			return fmt.Errorf("product %d: created_at is missing", i)
		}
	}
	return nil
}
