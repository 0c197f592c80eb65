// Package web serves a local read-mostly JSON API over the repository's
// tickets, mappings and cache. It binds to localhost and is meant for
// editor integrations and quick scripting, not for exposure beyond the
// developer machine.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gitdocs/gitdocs/internal/app"
	"github.com/gitdocs/gitdocs/internal/jira"
	"github.com/gitdocs/gitdocs/internal/log"
)

// DefaultAddr is where the admin API listens unless overridden.
const DefaultAddr = "127.0.0.1:7317"

// Server exposes the application over HTTP.
type Server struct {
	app    *app.App
	logger *log.Logger
	http   *http.Server
}

// NewServer builds the server for the given address.
func NewServer(a *app.App, addr string) *Server {
	s := &Server{app: a, logger: a.Logger}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/tickets", s.handleTickets)
	mux.HandleFunc("GET /api/tickets/{key}", s.handleTicket)
	mux.HandleFunc("GET /api/mappings", s.handleMappings)
	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /api/cache/clear", s.handleCacheClear)
	return mux
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("web: listen on %s: %w", s.http.Addr, err)
	}
	s.logger.Printf("gitdocs API listening on http://%s", ln.Addr())

	errc := make(chan error, 1)
	go func() { errc <- s.http.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler returns the route table, used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warnf("web: encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusCode maps client errors to HTTP statuses.
func statusCode(err error) int {
	switch {
	case errors.Is(err, jira.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jira.ErrAuth):
		return http.StatusBadGateway
	case errors.Is(err, app.ErrJiraNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	store := s.app.LoadMappings()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"repo":           s.app.RepoRoot,
		"jira":           s.app.Config.Repo.Jira != nil,
		"confluence":     s.app.Config.Repo.Confluence != nil,
		"cache_enabled":  s.app.Cache.Enabled(),
		"mapped_tickets": len(store.Tickets()),
		"mappings":       store.Len(),
	})
}

func (s *Server) handleTickets(w http.ResponseWriter, r *http.Request) {
	api, err := s.app.Jira()
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}

	jql := r.URL.Query().Get("jql")
	if jql == "" {
		project := ""
		if jc := s.app.Config.Repo.Jira; jc != nil {
			project = jc.ProjectKey
		}
		jql = fmt.Sprintf("project = %s ORDER BY updated DESC", project)
	}

	issues, err := api.SearchIssues(r.Context(), jql, 50)
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"issues": issues})
}

func (s *Server) handleTicket(w http.ResponseWriter, r *http.Request) {
	api, err := s.app.Jira()
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}

	issue, err := api.GetIssue(r.Context(), r.PathValue("key"))
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}

	store := s.app.LoadMappings()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"issue":    issue,
		"url":      api.BrowseURL(issue.Key),
		"mappings": store.ForTicket(issue.Key),
	})
}

func (s *Server) handleMappings(w http.ResponseWriter, r *http.Request) {
	store := s.app.LoadMappings()
	s.writeJSON(w, http.StatusOK, store)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.app.Cache.Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	ns := r.URL.Query().Get("namespace")
	if ns == "" {
		s.app.Cache.ClearAll()
		s.writeJSON(w, http.StatusOK, map[string]any{"cleared": "all"})
		return
	}
	removed := s.app.Cache.ClearNamespace(ns)
	s.writeJSON(w, http.StatusOK, map[string]any{"cleared": ns, "entries": removed})
}
