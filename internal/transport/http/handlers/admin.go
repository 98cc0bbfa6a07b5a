package http_handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/darkauth/server/internal/application/adminauth"
	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/infrastructure/security"
	"github.com/darkauth/server/internal/logger"
	"github.com/darkauth/server/internal/transport/http/dto"
	"github.com/darkauth/server/internal/transport/http/middleware"
	"github.com/darkauth/server/internal/transport/http/response"
)

// AdminHandler implements the admin cohort's OPAQUE login and RBAC
// management surface. There is no public admin self-registration endpoint:
// /admin/register requires an authenticated write-role admin, and the
// bootstrap-admin command does not create admin records.
type AdminHandler struct {
	svc         *adminauth.Service
	jwtSigner   *security.JWTSigner
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func NewAdminHandler(svc *adminauth.Service, jwtSigner *security.JWTSigner, accessTTL, refreshTTL time.Duration) *AdminHandler {
	return &AdminHandler{svc: svc, jwtSigner: jwtSigner, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func toAdminView(a domain.AdminUser) dto.AdminView {
	return dto.AdminView{ID: a.ID, Email: a.Email, Role: a.Role}
}

func (h *AdminHandler) RegisterStart(w http.ResponseWriter, r *http.Request) {
	var req dto.AdminRegisterStartRequest
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

	response.OK(w, dto.AdminRegisterStartResponse{
		SubjectID:            res.SubjectID,
		RegistrationResponse: encodeB64(res.RegistrationResponse),
	})
}

func (h *AdminHandler) RegisterFinish(w http.ResponseWriter, r *http.Request) {
	var req dto.AdminRegisterFinishRequest
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

	admin, err := h.svc.RegisterFinish(r.Context(), req.SubjectID, req.Email, req.Role, upload)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().Str("admin_id", admin.ID).Msg("admin registered")

	response.Created(w, dto.AdminRegisterFinishResponse{ID: admin.ID, Email: admin.Email, Role: admin.Role})
}

func (h *AdminHandler) LoginStart(w http.ResponseWriter, r *http.Request) {
	var req dto.AdminLoginStartRequest
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

	response.OK(w, dto.AdminLoginStartResponse{
		Message:   "continue",
		SessionID: res.LoginSessionID,
		KE2:       encodeB64(res.KE2),
	})
}

func (h *AdminHandler) LoginFinish(w http.ResponseWriter, r *http.Request) {
	var req dto.AdminLoginFinishRequest
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

	refreshToken, sess, err := h.svc.IssueSession(r.Context(), res.Admin.ID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	accessToken, err := h.jwtSigner.SignAdminAccessToken(res.Admin.ID, res.Admin.Role, h.accessTTL)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	security.SetSession(w, domain.CohortAdmin, sess.ID, "", refreshToken, h.refreshTTL)

	logger.WithCtx(r.Context()).Info().Str("admin_id", res.Admin.ID).Msg("admin logged in")

	response.OK(w, dto.AdminLoginFinishResponse{
		Admin:       toAdminView(res.Admin),
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.accessTTL.Seconds()),
	})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshTok, err := security.ReadRefreshToken(r, domain.CohortAdmin)
	if err == nil && refreshTok != "" {
		_ = h.svc.Logout(r.Context(), refreshTok)
	}
	security.ClearSession(w, domain.CohortAdmin)
	response.OK(w, dto.LogoutResponse{Status: "ok"})
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.svc.List(r.Context())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	views := make([]dto.AdminView, 0, len(admins))
	for _, a := range admins {
		views = append(views, toAdminView(a))
	}

	response.OK(w, dto.AdminListResponse{Admins: views})
}

func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.SubjectIDFromContext(r.Context())
	actorRole, _ := middleware.AdminRoleFromContext(r.Context())

	targetID := chi.URLParam(r, "id")
	if targetID == "" {
		response.WriteError(w, r, domain.ErrMissingField("id"))
		return
	}

	var req dto.AdminSetRoleRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.SetRole(r.Context(), actorID, actorRole, targetID, req.Role); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.AdminSetRoleResponse{Status: "ok"})
}
