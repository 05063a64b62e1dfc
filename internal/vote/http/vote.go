package http

import (
	"encoding/json"
	"net/http"

	"github.com/openballot/votegate/internal/vote/service"
	"github.com/openballot/votegate/pkg/cryptox"
	"github.com/openballot/votegate/pkg/httpx"
	"github.com/openballot/votegate/pkg/votesdk"
)

// VoteHandler handles ballot casting. Runs behind SessionMiddleware and
// CSRFMiddleware.
type VoteHandler struct {
	Users    *service.UserService
	Votes    *service.VoteService
	Resolver *httpx.ClientIPResolver
}

// HandleCast handles POST /v1/votes.
func (h *VoteHandler) HandleCast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromContext(ctx)

	var req votesdk.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		votesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.Users.GetUserByID(ctx, userID)
	if err != nil {
		votesdk.ErrInvalidSession.WriteError(w)
		return
	}

	vote, err := h.Votes.Cast(ctx, user, service.CastParams{
		UserID:            user.ID,
		ElectionID:        req.ElectionID,
		CandidateID:       req.CandidateID,
		FaceImage:         req.FaceImage,
		ClientIP:          h.Resolver.Resolve(r),
		DeviceFingerprint: deviceFingerprint(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, votesdk.CastVoteResponse{
		VoteID:     vote.ID,
		ElectionID: vote.ElectionID,
		VotedAt:    vote.VotedAt,
	})
}

// deviceFingerprint derives a stable request hash from headers the
// browser sends consistently. A heuristic signal only.
func deviceFingerprint(r *http.Request) string {
	return cryptox.Fingerprint(
		r.Header.Get("User-Agent"),
		r.Header.Get("Accept-Language"),
	)
}
