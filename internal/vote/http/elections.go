package http

import (
	"encoding/json"
	"net/http"

	"github.com/openballot/votegate/internal/vote/service"
	"github.com/openballot/votegate/pkg/httpx"
	"github.com/openballot/votegate/pkg/slogx"
	"github.com/openballot/votegate/pkg/votesdk"
)

// ElectionHandler serves election reads plus the admin write surface.
type ElectionHandler struct {
	Elections *service.ElectionService
}

func electionResponse(v service.ElectionView) votesdk.ElectionResponse {
	candidates := make([]votesdk.Candidate, 0, len(v.Candidates))
	for _, c := range v.Candidates {
		candidates = append(candidates, votesdk.Candidate{ID: c.ID, Name: c.Name})
	}
	return votesdk.ElectionResponse{
		ID:         v.Election.ID,
		Name:       v.Election.Name,
		State:      string(v.State),
		StartDate:  v.Election.StartDate,
		EndDate:    v.Election.EndDate,
		Candidates: candidates,
	}
}

// HandleGet handles GET /v1/elections/{id}.
func (h *ElectionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.Elections.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, electionResponse(view))
}

// HandleCreate handles POST /v1/admin/elections.
func (h *ElectionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req votesdk.CreateElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		votesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	e, err := h.Elections.Create(r.Context(), service.CreateElectionParams{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("election created", "election_id", e.ID)
	httpx.WriteJSON(w, http.StatusCreated, votesdk.ElectionResponse{
		ID:         e.ID,
		Name:       e.Name,
		State:      string(e.StateAt(e.CreatedAt)),
		StartDate:  e.StartDate,
		EndDate:    e.EndDate,
		Candidates: []votesdk.Candidate{},
	})
}

// HandleAddCandidate handles POST /v1/admin/elections/{id}/candidates.
func (h *ElectionHandler) HandleAddCandidate(w http.ResponseWriter, r *http.Request) {
	var req votesdk.CreateCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		votesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	c, err := h.Elections.AddCandidate(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, votesdk.Candidate{ID: c.ID, Name: c.Name})
}

// HandleActivate handles POST /v1/admin/elections/{id}/activate.
func (h *ElectionHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// HandleDeactivate handles POST /v1/admin/elections/{id}/deactivate.
func (h *ElectionHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *ElectionHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id := r.PathValue("id")
	if err := h.Elections.SetActive(r.Context(), id, active); err != nil {
		writeServiceError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("election flag updated",
		"election_id", id,
		"active", active,
	)
	w.WriteHeader(http.StatusNoContent)
}
