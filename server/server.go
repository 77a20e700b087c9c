// Package server exposes the question-answering pipeline over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yuin/goldmark"

	"github.com/c360studio/pagelens/pipeline"
)

// maxQuestionBytes bounds the ask request body.
const maxQuestionBytes = 1 << 20

// Answerer is the slice of the pipeline the server consumes.
type Answerer interface {
	AnswerWith(ctx context.Context, question string, opts pipeline.AskOptions) (*pipeline.FinalAnswer, error)
}

// Server is the HTTP API server for pagelens.
type Server struct {
	router   chi.Router
	pipeline Answerer
	markdown goldmark.Markdown
	log      *slog.Logger
}

// NewServer creates and configures the HTTP server.
func NewServer(p Answerer, log *slog.Logger) *Server {
	s := &Server{
		pipeline: p,
		markdown: goldmark.New(),
		log:      log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/api/ask", s.handleAsk)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type askRequest struct {
	Question  string `json:"question"`
	MaxChunks int    `json:"max_chunks,omitempty"`
	MaxImages int    `json:"max_images,omitempty"`
	Format    string `json:"format,omitempty"` // "text" (default) or "html"
}

type askResponse struct {
	*pipeline.FinalAnswer
	HTML      string `json:"html,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	body := http.MaxBytesReader(w, r.Body, maxQuestionBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.MaxChunks < 0 || req.MaxImages < 0 {
		writeError(w, http.StatusBadRequest, "max_chunks and max_images must be non-negative")
		return
	}

	answer, err := s.pipeline.AnswerWith(r.Context(), req.Question, pipeline.AskOptions{
		MaxChunks: req.MaxChunks,
		MaxImages: req.MaxImages,
	})
	if err != nil {
		s.log.Error("Answer failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}

	resp := askResponse{
		FinalAnswer: answer,
		ElapsedMS:   answer.Elapsed.Milliseconds(),
	}
	if req.Format == "html" {
		var buf bytes.Buffer
		if err := s.markdown.Convert([]byte(answer.Text), &buf); err != nil {
			s.log.Warn("Markdown render failed", "error", err)
		} else {
			resp.HTML = buf.String()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("Encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
