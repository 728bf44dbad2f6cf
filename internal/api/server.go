// Package api exposes the index and agent over JSON/HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/loupedev/loupe/internal/agent"
	"github.com/loupedev/loupe/internal/index"
)

// Server wires the index manager and agent into HTTP handlers.
type Server struct {
	manager *index.Manager
	agent   *agent.Agent
}

// NewServer creates a server. agent may be nil, in which case /chat
// reports that no provider is configured.
func NewServer(manager *index.Manager, chatAgent *agent.Agent) *Server {
	return &Server{manager: manager, agent: chatAgent}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /index/build", s.handleBuild)
	mux.HandleFunc("GET /index/stats", s.handleStats)
	mux.HandleFunc("POST /index/update", s.handleUpdate)
	mux.HandleFunc("POST /search/code", s.handleSearchCode)
	mux.HandleFunc("POST /search/keyword", s.handleSearchKeyword)
	mux.HandleFunc("POST /chat", s.handleChat)
	return logRequests(mux)
}

// ListenAndServe blocks serving on addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("api: listening on %s", addr)
	return srv.ListenAndServe()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("api: %s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Force bool `json:"force"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stats, err := s.manager.Build(r.Context(), req.Force)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Stats())
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, errors.New("path is required"))
		return
	}
	result, err := s.manager.UpdateFile(r.Context(), req.Path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearchCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string   `json:"query"`
		TopK      int      `json:"top_k"`
		MinScore  *float32 `json:"min_score"`
		File      string   `json:"file"`
		Language  string   `json:"language"`
		ChunkType string   `json:"chunk_type"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}
	minScore := index.DefaultMinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	results := s.manager.Search(r.Context(), req.Query, index.SearchOptions{
		TopK:      req.TopK,
		MinScore:  minScore,
		File:      req.File,
		Language:  req.Language,
		ChunkType: req.ChunkType,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleSearchKeyword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query    string `json:"query"`
		Language string `json:"language"`
		TopK     int    `json:"top_k"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}
	results, err := s.manager.SearchKeyword(req.Query, req.Language, req.TopK)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.agent == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no llm provider configured"))
		return
	}
	var req struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}
	reply, err := s.agent.Chat(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
