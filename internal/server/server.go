// Package server exposes the widget generator over HTTP.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/baza-crm/widget-cli/internal/model"
	"github.com/baza-crm/widget-cli/internal/widget"
)

//go:embed generator.html
var generatorHTML []byte

// maxRequestBody bounds generate requests. The request carries only
// credentials and flags; the heavy payload lives server-side.
const maxRequestBody = 1 << 20

// ClientSource fetches the client list for a Notion database, geocoding
// addresses when geocode is set.
type ClientSource func(ctx context.Context, apiKey, databaseID string, geocode bool) ([]model.Client, error)

// Server handles widget generation and serving.
type Server struct {
	source      ClientSource
	store       *widget.Store
	opts        widget.RenderOptions
	fallbackKey string
	fallbackDB  string
}

// Option configures the server.
type Option func(*Server)

// WithFallbackCredentials supplies the Notion key and database used when a
// generate request omits them.
func WithFallbackCredentials(apiKey, databaseID string) Option {
	return func(s *Server) {
		s.fallbackKey = apiKey
		s.fallbackDB = databaseID
	}
}

// WithRenderOptions overrides the map viewport and tile layer.
func WithRenderOptions(opts widget.RenderOptions) Option {
	return func(s *Server) { s.opts = opts }
}

// New creates a widget server backed by the given client source and store.
func New(source ClientSource, store *widget.Store, opts ...Option) *Server {
	s := &Server{
		source: source,
		store:  store,
		opts:   widget.DefaultRenderOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Post("/api/generate-widget", s.handleGenerate)
	r.Get("/api/widget/{id}", s.handleWidgetJSON)
	r.Get("/view-widget/{id}", s.handleViewWidget)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(generatorHTML)
}

type generateRequest struct {
	APIKey      string `json:"api_key"`
	APIKeyCamel string `json:"apiKey"`
	DatabaseID  string `json:"database_id"`
	DBCamel     string `json:"databaseId"`
	Geocode     *bool  `json:"geocode"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	apiKey := firstNonEmpty(req.APIKey, req.APIKeyCamel, s.fallbackKey)
	dbID := firstNonEmpty(req.DatabaseID, req.DBCamel, s.fallbackDB)
	if apiKey == "" || dbID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "missing API key or database ID",
		})
		return
	}

	geocode := true
	if req.Geocode != nil {
		geocode = *req.Geocode
	}

	clients, err := s.source(r.Context(), apiKey, dbID, geocode)
	if err != nil {
		zap.L().Error("widget generation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	clients = model.Merge(nil, clients)
	placed := model.WithCoords(clients)
	if dropped := len(clients) - len(placed); dropped > 0 {
		zap.L().Warn("dropping clients without coordinates", zap.Int("dropped", dropped))
	}

	html, err := widget.Render(placed, s.opts)
	if err != nil {
		zap.L().Error("widget render failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	id := s.store.Put(html)
	writeJSON(w, http.StatusOK, map[string]any{
		"widget_id":   id,
		"preview_url": "/view-widget/" + id,
		"clients":     len(placed),
		"size_mb":     roundMB(len(html)),
	})
}

func (s *Server) handleViewWidget(w http.ResponseWriter, r *http.Request) {
	html, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "Widget not found or expired", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func (s *Server) handleWidgetJSON(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	html, ok := s.store.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "widget not found or expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"widget_id": id,
		"html":      html,
		"size_mb":   roundMB(len(html)),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func roundMB(bytes int) float64 {
	mb := float64(bytes) / (1024 * 1024)
	return float64(int(mb*100+0.5)) / 100
}
