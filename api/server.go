// Package api exposes the client-facing HTTP surface of a
// ceres replica: record writes and reads plus the inspection
// endpoints for health, audit log and hold-back queue.
package api

import (
	"net/http"
	"time"

	"encoding/json"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-pluto/ceres/comm"
	"github.com/go-pluto/ceres/node"
	"github.com/go-pluto/ceres/storage"
)

// Structs

// Server serves the HTTP API of one replica. All writes go
// through the node service so they are clocked and
// replicated, reads go straight to the record store.
type Server struct {
	logger  log.Logger
	service node.Service
	store   storage.Store
	router  chi.Router
}

type writeResponse struct {
	Status string            `json:"status"`
	Key    string            `json:"key"`
	Clock  map[string]uint32 `json:"vector_clock"`
	Size   int               `json:"store_size"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Functions

// NewServer wires the HTTP routes of one replica.
func NewServer(logger log.Logger, service node.Service, store storage.Store) *Server {

	s := &Server{
		logger:  logger,
		service: service,
		store:   store,
	}

	r := chi.NewRouter()

	r.Post("/records", s.handleCreate)
	r.Put("/records/{key}", s.handleUpdate)
	r.Get("/records", s.handleList)
	r.Get("/records/{key}", s.handleGet)
	r.Get("/health", s.handleHealth)
	r.Get("/log", s.handleLog)
	r.Get("/queue", s.handleQueue)

	s.router = r

	return s
}

// Handler returns the routed handler, e.g. for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the HTTP API on the supplied address.
// It blocks until the underlying server fails.
func (s *Server) ListenAndServe(addr string) error {

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: (10 * time.Second),
	}

	level.Info(s.logger).Log(
		"msg", "API now listening for incoming requests",
		"addr", addr,
	)

	return srv.ListenAndServe()
}

// respond writes the supplied value as a JSON response.
func (s *Server) respond(w http.ResponseWriter, status int, value interface{}) {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(value); err != nil {
		level.Error(s.logger).Log(
			"msg", "failed to encode HTTP response",
			"err", err,
		)
	}
}

// fail writes an error response with the supplied status.
func (s *Server) fail(w http.ResponseWriter, status int, message string) {
	s.respond(w, status, errorResponse{Error: message})
}

// handleCreate accepts a new record for this replica. The
// record key must not be taken yet, anywhere: the first write
// of a key wins and later creates are rejected.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {

	var rec node.Record

	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		s.fail(w, http.StatusBadRequest, "request body is not a valid record")
		return
	}

	receipt, err := s.service.CreateRecord(rec)
	if err != nil {

		switch err {
		case node.ErrMissingID:
			s.fail(w, http.StatusBadRequest, err.Error())
		case node.ErrRecordExists:
			s.fail(w, http.StatusConflict, err.Error())
		default:
			s.fail(w, http.StatusInternalServerError, err.Error())
		}

		return
	}

	s.respond(w, http.StatusCreated, writeResponse{
		Status: "created",
		Key:    rec.ID,
		Clock:  receipt.Clock,
		Size:   receipt.StoreSize,
	})
}

// handleUpdate overwrites an existing record. The key in the
// URL is authoritative, a diverging key in the body is
// rejected.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {

	key := chi.URLParam(r, "key")

	var rec node.Record

	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		s.fail(w, http.StatusBadRequest, "request body is not a valid record")
		return
	}

	if rec.ID == "" {
		rec.ID = key
	}

	if rec.ID != key {
		s.fail(w, http.StatusBadRequest, "record id in body does not match id in URL")
		return
	}

	receipt, err := s.service.UpdateRecord(rec)
	if err != nil {

		switch err {
		case node.ErrMissingID:
			s.fail(w, http.StatusBadRequest, err.Error())
		case node.ErrRecordNotFound:
			s.fail(w, http.StatusNotFound, err.Error())
		default:
			s.fail(w, http.StatusInternalServerError, err.Error())
		}

		return
	}

	s.respond(w, http.StatusOK, writeResponse{
		Status: "updated",
		Key:    rec.ID,
		Clock:  receipt.Clock,
		Size:   receipt.StoreSize,
	})
}

// handleGet returns one record by key.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {

	key := chi.URLParam(r, "key")

	payload, err := s.store.Get(key)
	if err != nil {

		if err == storage.ErrNoRecord {
			s.fail(w, http.StatusNotFound, "no record with supplied id exists")
			return
		}

		s.fail(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// handleList returns all records of this replica, ordered by
// key.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {

	stored, err := s.store.List()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err.Error())
		return
	}

	records := make([]json.RawMessage, 0, len(stored))
	for _, rec := range stored {
		records = append(records, json.RawMessage(rec.Payload))
	}

	s.respond(w, http.StatusOK, struct {
		Records []json.RawMessage `json:"records"`
		Count   int               `json:"count"`
	}{
		Records: records,
		Count:   len(records),
	})
}

// handleHealth reports node id, clock, store size and log
// size.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {

	health, err := s.service.Health()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respond(w, http.StatusOK, health)
}

// handleLog returns the audit log of this replica.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {

	entries := s.service.AuditEntries()

	s.respond(w, http.StatusOK, struct {
		Log  []node.AuditEntry `json:"log"`
		Size int               `json:"size"`
	}{
		Log:  entries,
		Size: len(entries),
	})
}

// handleQueue returns the operations currently held back on
// this replica.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {

	queued := s.service.QueuedOperations()

	s.respond(w, http.StatusOK, struct {
		Queue []*comm.Operation `json:"queue"`
		Size  int               `json:"size"`
	}{
		Queue: queued,
		Size:  len(queued),
	})
}
