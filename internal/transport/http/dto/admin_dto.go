package dto

import (
	"strings"

	"github.com/darkauth/server/internal/domain"
)

// -------- Admin cohort: OPAQUE registration/login mirrors the user cohort
// but never exposes ZK or DRK endpoints (spec §6). --------

type AdminRegisterStartRequest struct {
	Email               string `json:"email"`
	RegistrationRequest string `json:"registration_request"`
}

func (r *AdminRegisterStartRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	if r.Email == "" {
		return domain.ErrMissingField("email")
	}
	if r.RegistrationRequest == "" {
		return domain.ErrMissingField("registration_request")
	}
	return nil
}

func (r *AdminRegisterStartRequest) DecodeRegistrationRequest() ([]byte, error) {
	return decodeB64(r.RegistrationRequest)
}

type AdminRegisterStartResponse struct {
	SubjectID            string `json:"subject_id"`
	RegistrationResponse string `json:"registration_response"`
}

type AdminRegisterFinishRequest struct {
	SubjectID          string `json:"subject_id"`
	Email              string `json:"email"`
	Role               string `json:"role"`
	RegistrationUpload string `json:"registration_upload"`
}

func (r *AdminRegisterFinishRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	if r.SubjectID == "" {
		return domain.ErrMissingField("subject_id")
	}
	if r.Email == "" {
		return domain.ErrMissingField("email")
	}
	if !domain.IsValidAdminRole(r.Role) {
		return domain.ErrInvalidField("role", "must be read or write")
	}
	if r.RegistrationUpload == "" {
		return domain.ErrMissingField("registration_upload")
	}
	return nil
}

func (r *AdminRegisterFinishRequest) DecodeUpload() ([]byte, error) {
	return decodeB64(r.RegistrationUpload)
}

type AdminRegisterFinishResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type AdminLoginStartRequest struct {
	Email string `json:"email"`
	KE1   string `json:"ke1"`
}

func (r *AdminLoginStartRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	if r.Email == "" {
		return domain.ErrMissingField("email")
	}
	if r.KE1 == "" {
		return domain.ErrMissingField("ke1")
	}
	return nil
}

func (r *AdminLoginStartRequest) DecodeKE1() ([]byte, error) { return decodeB64(r.KE1) }

type AdminLoginStartResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	KE2       string `json:"ke2"`
}

type AdminLoginFinishRequest struct {
	SessionID string `json:"session_id"`
	KE3       string `json:"ke3"`
}

func (r *AdminLoginFinishRequest) Validate() error {
	if r.SessionID == "" {
		return domain.ErrMissingField("session_id")
	}
	if r.KE3 == "" {
		return domain.ErrMissingField("ke3")
	}
	return nil
}

func (r *AdminLoginFinishRequest) DecodeKE3() ([]byte, error) { return decodeB64(r.KE3) }

type AdminLoginFinishResponse struct {
	Admin       AdminView `json:"admin"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
}

type AdminView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type AdminListResponse struct {
	Admins []AdminView `json:"admins"`
}

type AdminSetRoleRequest struct {
	Role string `json:"role"`
}

func (r *AdminSetRoleRequest) Validate() error {
	if !domain.IsValidAdminRole(r.Role) {
		return domain.ErrInvalidField("role", "must be read or write")
	}
	return nil
}

type AdminSetRoleResponse struct {
	Status string `json:"status"`
}
