// Package httpapi serves placement decisions over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/zpicker/internal/domain"
	zerrors "github.com/zzenonn/zpicker/internal/errors"
	"github.com/zzenonn/zpicker/internal/placement"
)

const (
	contentTypeJSON        = "application/json"
	defaultShutdownTimeout = 5 * time.Second
)

type iPicker interface {
	Choose(req domain.ChooseRequest) ([]domain.ReplicaSet, error)
	Snapshot() *placement.Snapshot
	Topology(ctx context.Context) ([]domain.StorageNode, error)
	Node(ctx context.Context, id string) (domain.StorageNode, error)
	Ready() <-chan struct{}
}

// Server exposes a picker over HTTP.
type Server struct {
	picker     iPicker
	httpServer *http.Server
	addr       string
}

// NewServer creates a server listening on addr once started.
func NewServer(picker iPicker, addr string) *Server {
	return &Server{
		picker: picker,
		addr:   addr,
	}
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server error")
		}
	}()

	log.Infof("HTTP server listening on %s", s.addr)
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/ping", s.handlePing)
	r.Get("/choose", s.handleChoose)
	r.Get("/snapshot", s.handleSnapshot)
	r.Get("/nodes", s.handleTopology)
	r.Get("/nodes/{id}", s.handleNode)

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("Error encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	resp := NewErrorResponse(err.Error())
	status := http.StatusInternalServerError

	var spaceErr *zerrors.InsufficientSpaceError
	switch {
	case errors.As(err, &spaceErr):
		status = http.StatusInsufficientStorage
		resp.Reason = spaceErr.Reason
	case errors.Is(err, zerrors.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, zerrors.ErrNodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, zerrors.ErrUnsupportedInStandaloneMode):
		status = http.StatusNotImplemented
	}

	s.writeJSON(w, status, resp)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.picker.Ready():
		s.writeJSON(w, http.StatusOK, NewOKResponse())
	default:
		s.writeJSON(w, http.StatusServiceUnavailable, NewErrorResponse("topology not loaded"))
	}
}

func (s *Server) handleChoose(w http.ResponseWriter, r *http.Request) {
	req, err := parseChooseRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sets, err := s.picker.Choose(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Status: StatusSuccess, Sets: sets})
}

func parseChooseRequest(r *http.Request) (domain.ChooseRequest, error) {
	var req domain.ChooseRequest
	q := r.URL.Query()

	if v := q.Get("size"); v != "" {
		size, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("%w: size %q", zerrors.ErrInvalidRequest, v)
		}
		req.SizeMB = size
	}
	if v := q.Get("replicas"); v != "" {
		replicas, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: replicas %q", zerrors.ErrInvalidRequest, v)
		}
		req.Replicas = replicas
	}
	if v := q.Get("operator"); v != "" {
		operator, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("%w: operator %q", zerrors.ErrInvalidRequest, v)
		}
		req.IsOperator = operator
	}
	return req, nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.picker.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"installed_at": snap.InstalledAt,
		"normal":       snap.Normal,
		"operator":     snap.Operator,
	})
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.picker.Topology(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Status: StatusSuccess, Nodes: nodes})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.picker.Node(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Response{Status: StatusSuccess, Node: &node})
}
