package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"LiveFM/core/events"
	"LiveFM/logger"
	"LiveFM/model"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Radio is the orchestrator surface the API exposes.
type Radio interface {
	EnqueueSong(req model.SongRequest) model.SongRequest
	Record(contentID string) (model.StatusRecord, bool)
	Queue() []model.SongRequest
	Playlist() []model.PreparedSong
	Streaming() bool
	Subscribe() *events.Subscription
}

// History records requests and lists recent ones. Optional.
type History interface {
	Record(ctx context.Context, req model.SongRequest)
	Recent(ctx context.Context, limit int) ([]*model.RequestHistory, error)
}

// Server serves the HTTP API and the event WebSocket.
type Server struct {
	radio     Radio
	history   History
	listenURL string
	router    *mux.Router
	upgrader  websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables request history recording and GET /api/history.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithListenURL sets the public stream address reported by GET /api/stream.
func WithListenURL(u string) Option {
	return func(s *Server) { s.listenURL = u }
}

// New builds the router.
func New(radio Radio, opts ...Option) *Server {
	s := &Server{
		radio: radio,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.HandleFunc("/api/requests", s.handleEnqueue).Methods(http.MethodPost)
	router.HandleFunc("/api/queue", s.handleQueue).Methods(http.MethodGet)
	router.HandleFunc("/api/playlist", s.handlePlaylist).Methods(http.MethodGet)
	router.HandleFunc("/api/status/{contentId}", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/stream", s.handleStream).Methods(http.MethodGet)
	router.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)
	router.HandleFunc("/ws/events", s.handleEvents)
	s.router = router
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logger.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type enqueueRequest struct {
	ContentID     string `json:"contentId"`
	Title         string `json:"title"`
	RequesterName string `json:"requesterName"`
	Note          string `json:"note"`
	DurationMs    int64  `json:"durationMs"`
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var body enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body.ContentID = strings.TrimSpace(body.ContentID)
	if body.ContentID == "" {
		writeError(w, http.StatusBadRequest, "contentId is required")
		return
	}

	req := s.radio.EnqueueSong(model.SongRequest{
		ContentID:     body.ContentID,
		Title:         strings.TrimSpace(body.Title),
		RequesterName: body.RequesterName,
		Note:          body.Note,
		Duration:      time.Duration(body.DurationMs) * time.Millisecond,
	})
	if s.history != nil {
		s.history.Record(r.Context(), req)
	}

	logger.Info("song requested",
		logger.String("requestId", req.RequestID),
		logger.String("contentId", req.ContentID),
		logger.String("requester", req.RequesterName))
	writeJSON(w, http.StatusAccepted, req)
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	queue := s.radio.Queue()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(queue),
		"requests": queue,
	})
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	songs := s.radio.Playlist()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(songs),
		"songs": songs,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["contentId"]
	rec, ok := s.radio.Record(id)
	if !ok {
		rec = model.StatusRecord{ContentID: id, State: model.StateUnknown}
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"streaming": s.radio.Streaming(),
		"listenUrl": s.listenURL,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "request history is disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		logger.Error("failed to list request history", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to list request history")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
