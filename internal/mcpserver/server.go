// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the product catalog as tools over stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/halvard/fehu/internal/apperr"
	"github.com/halvard/fehu/internal/catalog"
)

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcp *server.MCPServer
	svc *catalog.Service
}

// New creates an MCP server with all catalog tools registered.
func New(svc *catalog.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Fehu",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("list_products",
		mcp.WithDescription("List catalog products with optional filtering, sorting and paging."),
		mcp.WithString("search", mcp.Description("Case-insensitive substring filter on title")),
		mcp.WithString("sort_by", mcp.Description("Sort field: id, title, price or created_at")),
		mcp.WithString("order", mcp.Description("Sort order: asc or desc")),
		mcp.WithNumber("page", mcp.Description("Page number (1-based)")),
		mcp.WithNumber("per_page", mcp.Description("Page size (max 100)")),
	), s.listProducts)

	s.mcp.AddTool(mcp.NewTool("get_product",
		mcp.WithDescription("Fetch a single product by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Product id")),
	), s.getProduct)

	s.mcp.AddTool(mcp.NewTool("create_product",
		mcp.WithDescription("Create a new product. The id and creation timestamp are assigned by the store."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Product title (1-255 characters; letters, digits, spaces, hyphens, underscores, dots)")),
		mcp.WithNumber("price", mcp.Required(), mcp.Description("Price, greater than 0 and at most 999999.99")),
	), s.createProduct)

	s.mcp.AddTool(mcp.NewTool("update_product",
		mcp.WithDescription("Update an existing product's title and/or price. Omitted fields keep their current value."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Product id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithNumber("price", mcp.Description("New price")),
	), s.updateProduct)

	s.mcp.AddTool(mcp.NewTool("delete_product",
		mcp.WithDescription("Delete a product by id. The id is never reused."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Product id")),
	), s.deleteProduct)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listProducts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := catalog.Query{}
	if v, err := req.RequireString("search"); err == nil {
		q.Search = v
	}
	if v, err := req.RequireString("sort_by"); err == nil {
		q.SortBy = v
	}
	if v, err := req.RequireString("order"); err == nil {
		q.Order = v
	}
	if v, err := req.RequireInt("page"); err == nil {
		q.Page = v
	}
	if v, err := req.RequireInt("per_page"); err == nil {
		q.PerPage = v
	}

	products, pg := s.svc.List(ctx, q)
	out, _ := json.MarshalIndent(map[string]any{
		"products":   products,
		"pagination": pg,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	product, err := s.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("product %d not found", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(product, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	price, err := req.RequireFloat("price")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	product, err := s.svc.Create(ctx, catalog.ProductInput{Title: &title, Price: &price})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(product, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := catalog.ProductInput{}
	if v, err := req.RequireString("title"); err == nil {
		in.Title = &v
	}
	if v, err := req.RequireFloat("price"); err == nil {
		in.Price = &v
	}

	product, err := s.svc.Update(ctx, id, in)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("product %d not found", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(product, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("product %d not found", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %d", id)), nil
}
