package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/fehu/internal/apperr"
	"github.com/halvard/fehu/internal/audit"
	"github.com/halvard/fehu/internal/auth"
	"github.com/halvard/fehu/internal/catalog"
	"github.com/halvard/fehu/internal/models"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc         *catalog.Service
	authn       auth.Authenticator
	sessions    *auth.SessionStore
	audit       *audit.Log
	development bool
}

// NewHandler creates a new Handler. audit may be nil to disable the
// operation log.
func NewHandler(svc *catalog.Service, authn auth.Authenticator, sessions *auth.SessionStore, auditLog *audit.Log, development bool) *Handler {
	return &Handler{
		svc:         svc,
		authn:       authn,
		sessions:    sessions,
		audit:       auditLog,
		development: development,
	}
}

// queryFromRequest builds a catalog.Query from the URL parameters,
// sanitizing string inputs the same way mutation payloads are.
func queryFromRequest(r *http.Request) catalog.Query {
	params := r.URL.Query()
	q := catalog.Query{
		SortBy: models.SanitizeTitle(params.Get("sort_by")),
		Order:  models.SanitizeTitle(params.Get("order")),
		Search: models.SanitizeTitle(params.Get("search")),
	}

	if v := params.Get("min_price"); v != "" {
		p := models.CoercePrice(v)
		q.MinPrice = &p
	}
	if v := params.Get("max_price"); v != "" {
		p := models.CoercePrice(v)
		q.MaxPrice = &p
	}
	if v := params.Get("date_from"); v != "" {
		q.DateFrom = models.SanitizeTitle(v)
	}
	if v := params.Get("date_to"); v != "" {
		q.DateTo = models.SanitizeTitle(v)
	}
	q.Page, _ = strconv.Atoi(params.Get("page"))
	q.PerPage, _ = strconv.Atoi(params.Get("per_page"))
	return q
}

func productID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, pg := h.svc.List(r.Context(), queryFromRequest(r))
	writePaginated(w, r, products, pg)
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil || id < 1 {
		writeError(w, r, http.StatusBadRequest,
			[]apperr.FieldError{{Field: "id", Message: "id must be a positive integer", Type: "validation"}},
			"Invalid product id")
		return
	}

	product, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, notFoundErrors(id), "Product not found")
			return
		}
		slog.Error("get product failed", slog.Int("id", id), slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, systemErrors(err, h.development), "Failed to retrieve product")
		return
	}
	writeSuccess(w, r, http.StatusOK, product, "Product retrieved successfully")
}

// SearchProducts handles GET /api/products/search.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q := models.SanitizeTitle(r.URL.Query().Get("q"))
	products := h.svc.Search(r.Context(), q)
	writeSuccess(w, r, http.StatusOK, products, "Search completed")
}

// CreateProduct handles POST /api/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, nil, "Invalid JSON body")
		return
	}

	product, err := h.svc.Create(r.Context(), req.Input())
	if err != nil {
		h.writeMutationError(w, r, err, 0, "Failed to create product")
		return
	}

	h.recordAudit(r, "create_product", product.ID, fmt.Sprintf("title=%q price=%.2f", product.Title, product.Price))
	writeSuccess(w, r, http.StatusCreated, product, "Product created successfully")
}

// UpdateProduct handles PUT /api/products/{id}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	id, err := productID(r)
	if err != nil || id < 1 {
		writeError(w, r, http.StatusBadRequest,
			[]apperr.FieldError{{Field: "id", Message: "id must be a positive integer", Type: "validation"}},
			"Invalid product id")
		return
	}

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, nil, "Invalid JSON body")
		return
	}

	product, err := h.svc.Update(r.Context(), id, req.Input())
	if err != nil {
		h.writeMutationError(w, r, err, id, "Failed to update product")
		return
	}

	h.recordAudit(r, "update_product", id, fmt.Sprintf("title=%q price=%.2f", product.Title, product.Price))
	writeSuccess(w, r, http.StatusOK, product, "Product updated successfully")
}

// DeleteProduct handles DELETE /api/products/{id}. Admin only (enforced
// by the router's RequireRole middleware).
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil || id < 1 {
		writeError(w, r, http.StatusBadRequest,
			[]apperr.FieldError{{Field: "id", Message: "id must be a positive integer", Type: "validation"}},
			"Invalid product id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeMutationError(w, r, err, id, "Failed to delete product")
		return
	}

	h.recordAudit(r, "delete_product", id, "")
	writeSuccess(w, r, http.StatusOK, nil, "Product deleted successfully")
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, nil, "Invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, nil, "Username and password are required")
		return
	}

	identity, ok := h.authn.Authenticate(req.Username, req.Password)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, nil, "Invalid credentials")
		return
	}

	sess := h.sessions.Create(identity)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})

	h.recordAuditAs(identity.Username, "login", 0, "")
	writeSuccess(w, r, http.StatusOK, LoginResponse{
		Token:    sess.Token,
		Username: identity.Username,
		Role:     identity.Role,
	}, "Logged in successfully")
}

// Logout handles POST /api/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			token = c.Value
		}
	}
	if token != "" {
		h.sessions.Revoke(token)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeSuccess(w, r, http.StatusOK, nil, "Logged out successfully")
}

// Audit handles GET /api/audit. Admin only.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeSuccess(w, r, http.StatusOK, []audit.Entry{}, "Audit log disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.audit.Recent(limit)
	if err != nil {
		slog.Error("audit query failed", slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, systemErrors(err, h.development), "Failed to read audit log")
		return
	}
	writeSuccess(w, r, http.StatusOK, entries, "")
}

// writeMutationError maps service errors from the write paths onto the
// envelope: 404 not-found, 400 validation, 500 storage/system.
func (h *Handler) writeMutationError(w http.ResponseWriter, r *http.Request, err error, id int, message string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, r, http.StatusNotFound, notFoundErrors(id), "Product not found")
	default:
		if ve, ok := apperr.AsValidation(err); ok {
			writeError(w, r, http.StatusBadRequest, ve.Fields, "Validation failed")
			return
		}
		slog.Error("mutation failed", slog.Int("id", id), slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, systemErrors(err, h.development), message)
	}
}

func (h *Handler) recordAudit(r *http.Request, action string, productID int, detail string) {
	actor := "anonymous"
	if id, ok := IdentityFrom(r.Context()); ok {
		actor = id.Username
	}
	h.recordAuditAs(actor, action, productID, detail)
}

func (h *Handler) recordAuditAs(actor, action string, productID int, detail string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(action, productID, actor, detail); err != nil {
		slog.Warn("audit record failed", slog.String("action", action), slog.String("error", err.Error()))
	}
}
