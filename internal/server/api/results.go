package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/gesturebridge/internal/capi"
	"github.com/ayusman/gesturebridge/internal/detector"
	"github.com/ayusman/gesturebridge/internal/store"
)

// DefaultListLimit caps GET /api/results when no limit is given.
const DefaultListLimit = 50

// ResultsHandler handles HTTP requests for journaled results.
type ResultsHandler struct {
	store *store.Store
}

// NewResultsHandler creates a new ResultsHandler with the given store.
func NewResultsHandler(s *store.Store) *ResultsHandler {
	return &ResultsHandler{store: s}
}

// ServeHTTP routes /api/results, /api/results/{id} and
// /api/results/{id}/boundary.
func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/results")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "boundary":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.boundary(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type createResultRequest struct {
	Source string           `json:"source"`
	Result *detector.Result `json:"result"`
}

type resultResponse struct {
	ID         string           `json:"id"`
	Source     string           `json:"source"`
	NumHands   int              `json:"num_hands"`
	TopGesture string           `json:"top_gesture,omitempty"`
	Result     *detector.Result `json:"result"`
	CreatedAt  string           `json:"created_at"`
}

type listResultsResponse struct {
	Results []resultResponse `json:"results"`
	Total   int              `json:"total"`
}

// boundaryResponse is what a C caller reads from the converted record.
type boundaryResponse struct {
	ID                      string `json:"id"`
	GesturesCount           uint32 `json:"gestures_count"`
	HandednessCount         uint32 `json:"handedness_count"`
	HandLandmarksCount      uint32 `json:"hand_landmarks_count"`
	HandWorldLandmarksCount uint32 `json:"hand_world_landmarks_count"`
	capi.View
}

func toResponse(res *store.Result) resultResponse {
	return resultResponse{
		ID:         res.ID,
		Source:     res.Source,
		NumHands:   res.NumHands,
		TopGesture: res.TopGesture,
		Result:     res.Data,
		CreatedAt:  formatTime(res.CreatedAt),
	}
}

// list handles GET /api/results?limit=N&gesture=NAME.
func (h *ResultsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	var (
		results []*store.Result
		err     error
	)
	if gesture := r.URL.Query().Get("gesture"); gesture != "" {
		results, err = h.store.Results().ListByGesture(gesture)
		if err == nil && limit > 0 && len(results) > limit {
			results = results[:limit]
		}
	} else {
		results, err = h.store.Results().List(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list results")
		return
	}

	total, err := h.store.Results().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count results")
		return
	}

	response := listResultsResponse{
		Results: make([]resultResponse, 0, len(results)),
		Total:   total,
	}
	for _, res := range results {
		response.Results = append(response.Results, toResponse(res))
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/results, importing a result recognized elsewhere.
func (h *ResultsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Result == nil {
		writeError(w, http.StatusBadRequest, "Result is required")
		return
	}
	if req.Source == "" {
		req.Source = "import"
	}

	res := &store.Result{
		ID:     uuid.New().String(),
		Source: req.Source,
		Data:   req.Result,
	}
	if err := h.store.Results().Create(res); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save result")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(res))
}

// get handles GET /api/results/{id}.
func (h *ResultsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	res, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

// delete handles DELETE /api/results/{id}.
func (h *ResultsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Results().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Result not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete result")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// boundary handles GET /api/results/{id}/boundary. The stored result is
// converted into a C record, read back and released.
func (h *ResultsHandler) boundary(w http.ResponseWriter, r *http.Request, id string) {
	res, ok := h.lookup(w, id)
	if !ok {
		return
	}

	rec := capi.NewRecord(res.Data)
	layout := rec.Layout()
	view := rec.View()
	rec.Release()

	writeJSON(w, http.StatusOK, boundaryResponse{
		ID:                      res.ID,
		GesturesCount:           layout.GesturesCount,
		HandednessCount:         layout.HandednessCount,
		HandLandmarksCount:      layout.HandLandmarksCount,
		HandWorldLandmarksCount: layout.HandWorldLandmarksCount,
		View:                    view,
	})
}

func (h *ResultsHandler) lookup(w http.ResponseWriter, id string) (*store.Result, bool) {
	res, err := h.store.Results().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Result not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get result")
		return nil, false
	}
	return res, true
}
