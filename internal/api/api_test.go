package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/halvard/fehu/internal/audit"
	"github.com/halvard/fehu/internal/auth"
	"github.com/halvard/fehu/internal/testutil"
)

// testEnv sets up a temp store, catalog service, credential table, and
// router. authEnabled=false runs everything as a synthetic admin.
func testEnv(t *testing.T, authEnabled bool) http.Handler {
	return testEnvFull(t, authEnabled, nil)
}

func testEnvFull(t *testing.T, authEnabled bool, auditLog *audit.Log) http.Handler {
	t.Helper()

	svc := testutil.TestService(t)
	authn := auth.NewStatic([]auth.User{
		{ID: 1, Username: "admin", Password: "admin123", Role: auth.RoleAdmin},
		{ID: 2, Username: "user", Password: "user123", Role: auth.RoleRegular},
	})
	sessions := auth.NewSessionStore(time.Hour)

	h := NewHandler(svc, authn, sessions, auditLog, false)
	return NewRouter(h, sessions, authEnabled, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v, body = %s", err, w.Body.String())
	}
	return env
}

func login(t *testing.T, router http.Handler, username, password string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/login", "", map[string]string{
		"username": username, "password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s = %d, body = %s", username, w.Code, w.Body.String())
	}
	var env struct {
		Data LoginResponse `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	if env.Data.Token == "" {
		t.Fatal("login returned empty token")
	}
	return env.Data.Token
}

func TestCreateAndGetProduct(t *testing.T) {
	router := testEnv(t, false)

	w := doJSON(t, router, http.MethodPost, "/products", "", map[string]any{
		"title": "Widget", "price": 19.99,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if !env.Success || env.Code != http.StatusCreated {
		t.Errorf("envelope = %+v", env)
	}
	if env.Timestamp == "" || env.RequestID == "" {
		t.Error("envelope must carry timestamp and request_id")
	}
	data := env.Data.(map[string]any)
	if data["id"].(float64) != 1 || data["title"] != "Widget" || data["price"].(float64) != 19.99 {
		t.Errorf("data = %v", data)
	}
	if data["created_at"] == "" {
		t.Error("created_at missing from response")
	}

	w = doJSON(t, router, http.MethodGet, "/products/1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	env = decodeEnvelope(t, w)
	if env.Data.(map[string]any)["title"] != "Widget" {
		t.Errorf("get data = %v", env.Data)
	}
}

func TestCreateWithStringPrice(t *testing.T) {
	router := testEnv(t, false)

	w := doJSON(t, router, http.MethodPost, "/products", "", map[string]any{
		"title": "Widget", "price": "$19.99",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if got := env.Data.(map[string]any)["price"].(float64); got != 19.99 {
		t.Errorf("price = %v, want 19.99", got)
	}
}

func TestCreateValidationErrors(t *testing.T) {
	router := testEnv(t, false)

	w := doJSON(t, router, http.MethodPost, "/products", "", map[string]any{
		"title": "", "price": 0,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("create = %d, want 400", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Success {
		t.Error("success should be false")
	}
	if env.Message != "Validation failed" {
		t.Errorf("message = %q", env.Message)
	}
	if len(env.Errors) != 2 {
		t.Errorf("errors = %v, want title and price", env.Errors)
	}
}

func TestCreateInvalidJSON(t *testing.T) {
	router := testEnv(t, false)

	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader([]byte("{broken")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("broken body = %d, want 400", w.Code)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	router := testEnv(t, false)

	w := doJSON(t, router, http.MethodGet, "/products/42", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get = %d, want 404", w.Code)
	}
	env := decodeEnvelope(t, w)
	if len(env.Errors) != 1 || env.Errors[0].Type != "not_found" {
		t.Errorf("errors = %+v", env.Errors)
	}
}

func TestGetProduct_InvalidID(t *testing.T) {
	router := testEnv(t, false)

	for _, id := range []string{"abc", "0", "-3"} {
		w := doJSON(t, router, http.MethodGet, "/products/"+id, "", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("get %q = %d, want 400", id, w.Code)
		}
	}
}

func TestListPaginationEnvelope(t *testing.T) {
	router := testEnv(t, false)
	for _, p := range []map[string]any{
		{"title": "Alpha", "price": 10},
		{"title": "Beta", "price": 20},
		{"title": "Gamma", "price": 30},
	} {
		if w := doJSON(t, router, http.MethodPost, "/products", "", p); w.Code != http.StatusCreated {
			t.Fatalf("seed = %d", w.Code)
		}
	}

	w := doJSON(t, router, http.MethodGet, "/products?per_page=2&page=2", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Pagination == nil {
		t.Fatal("pagination block missing")
	}
	if env.Pagination.CurrentPage != 2 || env.Pagination.TotalItems != 3 || env.Pagination.TotalPages != 2 {
		t.Errorf("pagination = %+v", env.Pagination)
	}
	items := env.Data.([]any)
	if len(items) != 1 {
		t.Errorf("page 2 items = %d, want 1", len(items))
	}
}

func TestListWithFilters(t *testing.T) {
	router := testEnv(t, false)
	for _, p := range []map[string]any{
		{"title": "Cheap Widget", "price": 5},
		{"title": "Mid Widget", "price": 25},
		{"title": "Lux Widget", "price": 80},
	} {
		doJSON(t, router, http.MethodPost, "/products", "", p)
	}

	w := doJSON(t, router, http.MethodGet, "/products?min_price=20&sort_by=price&order=desc", "", nil)
	env := decodeEnvelope(t, w)
	items := env.Data.([]any)
	if len(items) != 2 {
		t.Fatalf("filtered items = %d, want 2", len(items))
	}
	first := items[0].(map[string]any)
	if first["title"] != "Lux Widget" {
		t.Errorf("first = %v, want Lux Widget (price desc)", first["title"])
	}
}

func TestSearchProducts(t *testing.T) {
	router := testEnv(t, false)
	doJSON(t, router, http.MethodPost, "/products", "", map[string]any{"title": "Blue Widget", "price": 1})
	doJSON(t, router, http.MethodPost, "/products", "", map[string]any{"title": "Gadget", "price": 2})

	w := doJSON(t, router, http.MethodGet, "/products/search?q=widget", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if items := env.Data.([]any); len(items) != 1 {
		t.Errorf("results = %d, want 1", len(items))
	}
}

func TestUpdateProduct(t *testing.T) {
	router := testEnv(t, false)
	doJSON(t, router, http.MethodPost, "/products", "", map[string]any{"title": "Widget", "price": 19.99})

	// Title-only update keeps the price.
	w := doJSON(t, router, http.MethodPut, "/products/1", "", map[string]any{"title": "Renamed"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]any)
	if data["title"] != "Renamed" || data["price"].(float64) != 19.99 {
		t.Errorf("data = %v", data)
	}

	w = doJSON(t, router, http.MethodPut, "/products/99", "", map[string]any{"title": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	router := testEnv(t, true)
	adminToken := login(t, router, "admin", "admin123")
	userToken := login(t, router, "user", "user123")

	w := doJSON(t, router, http.MethodPost, "/products", userToken, map[string]any{"title": "Widget", "price": 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("regular user create = %d", w.Code)
	}

	// Anonymous → 401.
	if w := doJSON(t, router, http.MethodDelete, "/products/1", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous delete = %d, want 401", w.Code)
	}
	// Regular user → 403.
	if w := doJSON(t, router, http.MethodDelete, "/products/1", userToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("regular delete = %d, want 403", w.Code)
	}
	// Admin → 200, then the product is gone.
	if w := doJSON(t, router, http.MethodDelete, "/products/1", adminToken, nil); w.Code != http.StatusOK {
		t.Errorf("admin delete = %d, want 200", w.Code)
	}
	if w := doJSON(t, router, http.MethodGet, "/products/1", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestMutationsRequireAuth(t *testing.T) {
	router := testEnv(t, true)

	// Reads stay public.
	if w := doJSON(t, router, http.MethodGet, "/products", "", nil); w.Code != http.StatusOK {
		t.Errorf("anonymous list = %d, want 200", w.Code)
	}
	// Writes do not.
	if w := doJSON(t, router, http.MethodPost, "/products", "", map[string]any{"title": "x", "price": 1}); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous create = %d, want 401", w.Code)
	}
	if w := doJSON(t, router, http.MethodPut, "/products/1", "", map[string]any{"title": "x"}); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous update = %d, want 401", w.Code)
	}
}

func TestLoginFailures(t *testing.T) {
	router := testEnv(t, true)

	w := doJSON(t, router, http.MethodPost, "/login", "", map[string]string{"username": "admin", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password = %d, want 401", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/login", "", map[string]string{"username": "admin"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing password = %d, want 400", w.Code)
	}
}

func TestLoginSetsCookie(t *testing.T) {
	router := testEnv(t, true)

	w := doJSON(t, router, http.MethodPost, "/login", "", map[string]string{"username": "admin", "password": "admin123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d", w.Code)
	}
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("session cookie not set")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	// Cookie works as a credential for mutations.
	body, _ := json.Marshal(map[string]any{"title": "Widget", "price": 1})
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("cookie-authed create = %d, want 201", rec.Code)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	router := testEnv(t, true)
	token := login(t, router, "user", "user123")

	if w := doJSON(t, router, http.MethodPost, "/logout", token, nil); w.Code != http.StatusOK {
		t.Fatalf("logout = %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodPost, "/products", token, map[string]any{"title": "x", "price": 1}); w.Code != http.StatusUnauthorized {
		t.Errorf("create after logout = %d, want 401", w.Code)
	}
}

func TestAuditEndpoint(t *testing.T) {
	router := testEnvFull(t, true, testutil.TestAudit(t))
	adminToken := login(t, router, "admin", "admin123")
	userToken := login(t, router, "user", "user123")

	doJSON(t, router, http.MethodPost, "/products", adminToken, map[string]any{"title": "Widget", "price": 1})

	// Admin only.
	if w := doJSON(t, router, http.MethodGet, "/audit", userToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("regular audit read = %d, want 403", w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/audit", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("audit = %d, body = %s", w.Code, w.Body.String())
	}
	var env struct {
		Data []audit.Entry `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	// Two logins plus one create.
	if len(env.Data) != 3 {
		t.Fatalf("entries = %d, want 3", len(env.Data))
	}
	if env.Data[0].Action != "create_product" || env.Data[0].Actor != "admin" {
		t.Errorf("newest entry = %+v", env.Data[0])
	}
}

func TestAuditDisabled(t *testing.T) {
	router := testEnv(t, true)
	adminToken := login(t, router, "admin", "admin123")

	w := doJSON(t, router, http.MethodGet, "/audit", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("audit = %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Message != "Audit log disabled" {
		t.Errorf("message = %q", env.Message)
	}
}

func TestTitleSanitizedOnCreate(t *testing.T) {
	router := testEnv(t, false)

	w := doJSON(t, router, http.MethodPost, "/products", "", map[string]any{
		"title": "<b>Bold Widget</b>", "price": 1,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if got := env.Data.(map[string]any)["title"]; got != "Bold Widget" {
		t.Errorf("title = %q, want tags stripped", got)
	}
}
