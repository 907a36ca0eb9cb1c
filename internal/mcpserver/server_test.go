package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/halvard/fehu/internal/catalog"
	"github.com/halvard/fehu/internal/storage"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "products.json")
	store, err := storage.New(path, storage.DefaultOptions(), logger)
	if err != nil {
		t.Fatal(err)
	}
	svc := catalog.NewService(store, logger)
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so we invoke the tool
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_products":
		result, err = srv.listProducts(ctx, req)
	case "get_product":
		result, err = srv.getProduct(ctx, req)
	case "create_product":
		result, err = srv.createProduct(ctx, req)
	case "update_product":
		result, err = srv.updateProduct(ctx, req)
	case "delete_product":
		result, err = srv.deleteProduct(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndGetProduct(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_product", map[string]interface{}{
		"title": "Widget",
		"price": 19.99,
	})
	if r.IsError {
		t.Fatalf("create error: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"title": "Widget"`) || !strings.Contains(text, `"id": 1`) {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "get_product", map[string]interface{}{"id": 1})
	if r.IsError {
		t.Fatalf("get error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"title": "Widget"`) {
		t.Errorf("get result = %q", resultText(r))
	}
}

func TestCreateProductInvalid(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_product", map[string]interface{}{
		"title": "Widget",
		"price": 0,
	})
	if !r.IsError {
		t.Error("zero price should produce a tool error")
	}

	r = callTool(t, srv, "create_product", map[string]interface{}{"title": "Widget"})
	if !r.IsError {
		t.Error("missing price should produce a tool error")
	}
}

func TestGetProductMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_product", map[string]interface{}{"id": 99})
	if !r.IsError {
		t.Error("missing product should produce a tool error")
	}
	if !strings.Contains(resultText(r), "not found") {
		t.Errorf("error text = %q", resultText(r))
	}
}

func TestListProducts(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_product", map[string]interface{}{"title": "Blue Widget", "price": 1})
	callTool(t, srv, "create_product", map[string]interface{}{"title": "Gadget", "price": 2})

	r := callTool(t, srv, "list_products", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "Blue Widget") || !strings.Contains(text, "Gadget") {
		t.Errorf("list result = %q", text)
	}
	if !strings.Contains(text, `"total_items": 2`) {
		t.Errorf("pagination missing from %q", text)
	}

	r = callTool(t, srv, "list_products", map[string]interface{}{"search": "widget"})
	text = resultText(r)
	if !strings.Contains(text, "Blue Widget") || strings.Contains(text, "Gadget") {
		t.Errorf("filtered list = %q", text)
	}
}

func TestUpdateProduct(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_product", map[string]interface{}{"title": "Widget", "price": 10})

	// Title-only update keeps the price.
	r := callTool(t, srv, "update_product", map[string]interface{}{"id": 1, "title": "Renamed"})
	if r.IsError {
		t.Fatalf("update error: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"title": "Renamed"`) || !strings.Contains(text, `"price": 10`) {
		t.Errorf("update result = %q", text)
	}

	r = callTool(t, srv, "update_product", map[string]interface{}{"id": 5, "title": "x"})
	if !r.IsError {
		t.Error("update of missing product should produce a tool error")
	}
}

func TestDeleteProduct(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_product", map[string]interface{}{"title": "Widget", "price": 1})

	r := callTool(t, srv, "delete_product", map[string]interface{}{"id": 1})
	if r.IsError {
		t.Fatalf("delete error: %s", resultText(r))
	}
	if resultText(r) != "deleted: 1" {
		t.Errorf("delete result = %q", resultText(r))
	}

	r = callTool(t, srv, "delete_product", map[string]interface{}{"id": 1})
	if !r.IsError {
		t.Error("double delete should produce a tool error")
	}
}
