package api

import (
	"encoding/json"
	"strings"

	"github.com/halvard/fehu/internal/catalog"
	"github.com/halvard/fehu/internal/models"
)

// PriceValue accepts a price as either a JSON number or a loosely
// formatted string ("$19.99", "19,99 EUR"). Coercion never fails: garbage
// becomes 0.0, which the product validator then rejects with a proper
// field error.
type PriceValue float64

// UnmarshalJSON implements the number-or-string coercion.
func (p *PriceValue) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*p = PriceValue(models.CoercePrice(str))
		return nil
	}
	*p = PriceValue(models.CoercePrice(s))
	return nil
}

// ProductRequest is the mutation body for create and update. Both fields
// are optional at the decoding layer; create rejects missing fields
// through validation, update keeps the existing values.
type ProductRequest struct {
	Title *string     `json:"title"`
	Price *PriceValue `json:"price"`
}

// Input converts the request into the catalog's typed input.
func (r ProductRequest) Input() catalog.ProductInput {
	in := catalog.ProductInput{Title: r.Title}
	if r.Price != nil {
		price := float64(*r.Price)
		in.Price = &price
	}
	return in
}

// LoginRequest is the body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
