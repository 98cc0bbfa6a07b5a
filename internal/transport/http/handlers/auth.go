package http_handlers

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/darkauth/server/internal/application/auth"
	"github.com/darkauth/server/internal/cryptoutil"
	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/infrastructure/security"
	"github.com/darkauth/server/internal/logger"
	"github.com/darkauth/server/internal/transport/http/dto"
	"github.com/darkauth/server/internal/transport/http/middleware"
	"github.com/darkauth/server/internal/transport/http/response"
)

// AuthHandler implements the end-user cohort's OPAQUE registration/login,
// session refresh, and password-change surface (spec §6).
type AuthHandler struct {
	svc        *auth.Service
	refreshTTL time.Duration
}

func NewAuthHandler(svc *auth.Service, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, refreshTTL: refreshTTL}
}

func toUserView(u domain.User) dto.UserView {
	return dto.UserView{ID: u.ID, Email: u.Email, EmailVerified: u.EmailVerified}
}

func (h *AuthHandler) RegisterStart(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterStartRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	regReq, err := req.DecodeRegistrationRequest()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.RegisterStart(r.Context(), req.Email, regReq)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.RegisterStartResponse{
		SubjectID:            res.SubjectID,
		RegistrationResponse: encodeB64(res.RegistrationResponse),
	})
}

func (h *AuthHandler) RegisterFinish(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterFinishRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	upload, err := req.DecodeUpload()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	wrappedDRK, err := req.DecodeWrappedDRK()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	wrapNonce, err := req.DecodeWrapNonce()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	user, err := h.svc.RegisterFinish(r.Context(), req.SubjectID, req.Email, upload, wrappedDRK, wrapNonce, req.KDFVersion)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().Str("user_id", user.ID).Msg("user registered")

	response.Created(w, dto.RegisterFinishResponse{ID: user.ID, Email: user.Email})
}

func (h *AuthHandler) LoginStart(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginStartRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	ke1, err := req.DecodeKE1()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.LoginStart(r.Context(), req.Email, ke1)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.LoginStartResponse{
		Message:   "continue",
		SessionID: res.LoginSessionID,
		KE2:       encodeB64(res.KE2),
	})
}

func (h *AuthHandler) LoginFinish(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginFinishRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	ke3, err := req.DecodeKE3()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.LoginFinish(r.Context(), req.SessionID, ke3)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	refreshToken, sess, err := h.svc.IssueSession(r.Context(), res.User.ID, req.ClientID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	csrfToken, err := cryptoutil.NewOpaqueToken(16)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	security.SetSession(w, domain.CohortUser, sess.ID, csrfToken, refreshToken, h.refreshTTL)

	logger.WithCtx(r.Context()).Info().Str("user_id", res.User.ID).Msg("user logged in")

	response.OK(w, dto.LoginFinishResponse{
		User:       toUserView(res.User),
		WrappedDRK: encodeB64(res.WrappedRootKey.Ciphertext),
		WrapNonce:  encodeB64(res.WrappedRootKey.Nonce),
		KDFVersion: res.WrappedRootKey.KDFVersion,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshTok, err := security.ReadRefreshToken(r, domain.CohortUser)
	if err == nil && refreshTok != "" {
		_ = h.svc.Logout(r.Context(), refreshTok)
	}
	security.ClearSession(w, domain.CohortUser)
	response.OK(w, dto.LogoutResponse{Status: "ok"})
}

func (h *AuthHandler) SessionsRevoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}
	if err := h.svc.RevokeAllSessions(r.Context(), userID); err != nil {
		response.WriteError(w, r, err)
		return
	}
	security.ClearSession(w, domain.CohortUser)
	response.OK(w, dto.SessionsRevokeResponse{Status: "ok"})
}

// PasswordChangeStart re-runs OPAQUE registration for the authenticated
// subject's own account (spec §6, /password/change/start).
func (h *AuthHandler) PasswordChangeStart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	var req dto.PasswordChangeStartRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	regReq, err := req.DecodeRegistrationRequest()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	resp, err := h.svc.ChangePasswordStart(r.Context(), userID, regReq)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.PasswordChangeStartResponse{RegistrationResponse: encodeB64(resp)})
}

func (h *AuthHandler) PasswordChangeFinish(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	var req dto.PasswordChangeFinishRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	upload, err := req.DecodeUpload()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	wrappedDRK, err := req.DecodeWrappedDRK()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	wrapNonce, err := req.DecodeWrapNonce()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ChangePasswordFinish(r.Context(), userID, upload, wrappedDRK, wrapNonce, req.KDFVersion); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.RevokeAllSessions(r.Context(), userID); err != nil {
		response.WriteError(w, r, err)
		return
	}
	security.ClearSession(w, domain.CohortUser)

	response.OK(w, dto.PasswordChangeFinishResponse{Status: "ok"})
}

func encodeB64(b []byte) string {
	if b == nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
