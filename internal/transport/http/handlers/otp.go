package http_handlers

import (
	"net/http"

	"github.com/darkauth/server/internal/application/otp"
	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/transport/http/dto"
	"github.com/darkauth/server/internal/transport/http/middleware"
	"github.com/darkauth/server/internal/transport/http/response"
)

// OTPHandler implements the TOTP second-factor lifecycle (spec §4.6, §6).
type OTPHandler struct {
	svc *otp.Service
}

func NewOTPHandler(svc *otp.Service) *OTPHandler {
	return &OTPHandler{svc: svc}
}

func (h *OTPHandler) SetupInit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	res, err := h.svc.Setup(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.OTPSetupInitResponse{Secret: res.Secret, ProvisioningURI: res.ProvisioningURI})
}

func (h *OTPHandler) SetupVerify(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	var req dto.OTPCodeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.Confirm(r.Context(), userID, req.Code); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.OTPStatusResponse{Status: "confirmed"})
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	var req dto.OTPCodeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.Verify(r.Context(), userID, req.Code); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.OTPStatusResponse{Status: "verified"})
}

func (h *OTPHandler) Disable(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	if err := h.svc.Disable(r.Context(), userID); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.OTPStatusResponse{Status: "disabled"})
}

func (h *OTPHandler) BackupRegenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	codes, err := h.svc.GenerateBackupCodes(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.OTPBackupCodesResponse{Codes: codes})
}
