package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	papertrail "github.com/eugener/papertrail/internal"
)

func (s *server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.App.Store.Stats())
}

func (s *server) handleCacheDelete(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")
	if !s.deps.App.Store.Delete(key) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("cache key %q not found", key))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type clearRequest struct {
	Pattern string `json:"pattern"`
}

type clearResponse struct {
	Pattern string `json:"pattern,omitempty"`
	Removed int    `json:"removed"`
}

// handleCacheClear clears every entry, or only keys matching the optional
// regular expression in the body.
func (s *server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeErr(w, r, fmt.Errorf("%w: invalid request body: %v", papertrail.ErrBadRequest, err))
		return
	}

	store := s.deps.App.Store
	if req.Pattern == "" {
		n := store.Len()
		store.Clear()
		writeJSON(w, http.StatusOK, clearResponse{Removed: n})
		return
	}

	n, err := store.ClearPattern(req.Pattern)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Pattern: req.Pattern, Removed: n})
}
