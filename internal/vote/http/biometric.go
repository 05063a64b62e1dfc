package http

import (
	"encoding/json"
	"net/http"

	"github.com/openballot/votegate/internal/vote/challenge"
	"github.com/openballot/votegate/internal/vote/service"
	"github.com/openballot/votegate/pkg/httpx"
	"github.com/openballot/votegate/pkg/slogx"
	"github.com/openballot/votegate/pkg/votesdk"
)

// BiometricHandler handles enrollment, fingerprint ceremonies and face
// verification. All routes run behind SessionMiddleware.
type BiometricHandler struct {
	Users      *service.UserService
	Biometrics *service.BiometricService
	Challenges *service.ChallengeService
	WebAuthn   *service.WebAuthnService
	FaceMatch  *service.FaceMatchService
	FaceProofs *service.FaceProofSigner
}

// HandleFaceEnroll handles POST /v1/biometric/face/enroll.
func (h *BiometricHandler) HandleFaceEnroll(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	var req votesdk.FaceEnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		votesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Biometrics.EnrollFace(r.Context(), userID, req.Image); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("face enrollment updated", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleCredentialEnroll handles POST /v1/biometric/fingerprint/enroll.
func (h *BiometricHandler) HandleCredentialEnroll(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	var req votesdk.CredentialEnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		votesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Biometrics.EnrollCredential(r.Context(), userID, service.EnrollCredentialParams{
		CredentialID: req.CredentialID,
		PublicKey:    req.PublicKey,
		Algorithm:    req.Algorithm,
	}); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("fingerprint credential updated", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleChallenge handles POST /v1/biometric/fingerprint/challenge.
// Reissuing overwrites any outstanding challenge.
func (h *BiometricHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	value, err := h.Challenges.Issue(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, votesdk.ChallengeResponse{
		Challenge: value,
		ExpiresIn: int(challenge.DefaultTTL.Seconds()),
	})
}

// HandleFingerprintVerify handles POST /v1/biometric/fingerprint/verify.
// A successful assertion arms the one-shot verified flag consumed at vote
// casting.
func (h *BiometricHandler) HandleFingerprintVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromContext(ctx)
	log := slogx.FromContext(ctx)

	var req votesdk.AssertionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		votesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.Users.GetUserByID(ctx, userID)
	if err != nil {
		votesdk.ErrInvalidSession.WriteError(w)
		return
	}

	err = h.WebAuthn.VerifyAssertion(ctx, user, service.Assertion{
		CredentialID:      req.CredentialID,
		RawID:             req.RawID,
		Type:              req.Type,
		ClientDataJSON:    req.ClientDataJSON,
		AuthenticatorData: req.AuthenticatorData,
		Signature:         req.Signature,
		UserHandle:        req.UserHandle,
	})
	if err != nil {
		log.Warn("fingerprint assertion rejected", "user_id", userID)
		writeServiceError(w, r, err)
		return
	}

	if err := h.Challenges.MarkVerified(ctx, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	// A verified assertion is this modality's identity confirmation, the
	// counterpart of redeeming a face proof.
	if err := h.Users.ConfirmIdentity(ctx, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Info("fingerprint assertion verified", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleFaceVerify handles POST /v1/biometric/face/verify. On a match the
// response carries a short-lived proof redeemable at identity
// confirmation; on a mismatch only the coarse band is returned, never the
// raw confidence.
func (h *BiometricHandler) HandleFaceVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromContext(ctx)
	log := slogx.FromContext(ctx)

	var req votesdk.FaceVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		votesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.Users.GetUserByID(ctx, userID)
	if err != nil {
		votesdk.ErrInvalidSession.WriteError(w)
		return
	}

	outcome, err := h.FaceMatch.Verify(ctx, user, req.Image)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := votesdk.FaceVerifyResponse{
		Matched: outcome.Matched,
		Band:    string(outcome.Band),
	}
	if outcome.Matched {
		proof, err := h.FaceProofs.Sign(userID, outcome.Confidence, outcome.Threshold)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp.Proof = proof
		log.Info("face verification passed", "user_id", userID)
	} else {
		log.Warn("face verification failed", "user_id", userID, "band", resp.Band)
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleIdentityConfirm handles POST /v1/identity/confirm. Redeems a face
// proof and sets the verified flag required for voting. The proof must
// belong to the authenticated user.
func (h *BiometricHandler) HandleIdentityConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromContext(ctx)

	var req votesdk.IdentityConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		votesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	claims, err := h.FaceProofs.Verify(req.Proof)
	if err != nil || claims.Subject != userID {
		votesdk.ErrBiometricRequired.WriteError(w)
		return
	}

	if err := h.Users.ConfirmIdentity(ctx, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("identity confirmed", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
