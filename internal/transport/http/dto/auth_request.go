package dto

import (
	"encoding/base64"
	"strings"

	"github.com/darkauth/server/internal/domain"
)

// -------- OPAQUE registration / login (user cohort) --------

// RegisterStartRequest carries the OPAQUE registration request as
// base64url raw bytes (spec §6 wire formats).
type RegisterStartRequest struct {
	Email               string `json:"email"`
	RegistrationRequest string `json:"registration_request"`
}

func (r *RegisterStartRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	if r.Email == "" {
		return domain.ErrMissingField("email")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.RegistrationRequest == "" {
		return domain.ErrMissingField("registration_request")
	}
	return nil
}

func (r *RegisterStartRequest) DecodeRegistrationRequest() ([]byte, error) {
	return decodeB64(r.RegistrationRequest)
}

// RegisterFinishRequest completes registration: the OPAQUE upload plus the
// client-wrapped Data Root Key. The server never sees the plaintext DRK.
type RegisterFinishRequest struct {
	SubjectID          string `json:"subject_id"`
	Email              string `json:"email"`
	RegistrationUpload string `json:"registration_upload"`
	WrappedDRK         string `json:"wrapped_drk"`
	WrapNonce          string `json:"wrap_nonce"`
	KDFVersion         int    `json:"kdf_version"`
}

func (r *RegisterFinishRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	if r.SubjectID == "" {
		return domain.ErrMissingField("subject_id")
	}
	if r.Email == "" {
		return domain.ErrMissingField("email")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.RegistrationUpload == "" {
		return domain.ErrMissingField("registration_upload")
	}
	if r.WrappedDRK == "" {
		return domain.ErrMissingField("wrapped_drk")
	}
	if len(r.WrappedDRK) > (10*1024*4)/3+8 { // generous base64 bound for the 10 KiB cap
		return domain.ErrInvalidField("wrapped_drk", "exceeds 10 KiB")
	}
	if r.WrapNonce == "" {
		return domain.ErrMissingField("wrap_nonce")
	}
	return nil
}

func (r *RegisterFinishRequest) DecodeUpload() ([]byte, error)     { return decodeB64(r.RegistrationUpload) }
func (r *RegisterFinishRequest) DecodeWrappedDRK() ([]byte, error) { return decodeB64(r.WrappedDRK) }
func (r *RegisterFinishRequest) DecodeWrapNonce() ([]byte, error)  { return decodeB64(r.WrapNonce) }

type LoginStartRequest struct {
	Email string `json:"email"`
	KE1   string `json:"ke1"`
}

func (r *LoginStartRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	if r.Email == "" {
		return domain.ErrMissingField("email")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.KE1 == "" {
		return domain.ErrMissingField("ke1")
	}
	return nil
}

func (r *LoginStartRequest) DecodeKE1() ([]byte, error) { return decodeB64(r.KE1) }

type LoginFinishRequest struct {
	SessionID string `json:"session_id"`
	KE3       string `json:"ke3"`
	ClientID  string `json:"client_id,omitempty"`
}

func (r *LoginFinishRequest) Validate() error {
	if r.SessionID == "" {
		return domain.ErrMissingField("session_id")
	}
	if r.KE3 == "" {
		return domain.ErrMissingField("ke3")
	}
	return nil
}

func (r *LoginFinishRequest) DecodeKE3() ([]byte, error) { return decodeB64(r.KE3) }

// -------- Password (OPAQUE re-registration) change --------

type PasswordChangeStartRequest struct {
	RegistrationRequest string `json:"registration_request"`
}

func (r *PasswordChangeStartRequest) Validate() error {
	if r.RegistrationRequest == "" {
		return domain.ErrMissingField("registration_request")
	}
	return nil
}

func (r *PasswordChangeStartRequest) DecodeRegistrationRequest() ([]byte, error) {
	return decodeB64(r.RegistrationRequest)
}

type PasswordChangeFinishRequest struct {
	RegistrationUpload string `json:"registration_upload"`
	WrappedDRK         string `json:"wrapped_drk"`
	WrapNonce          string `json:"wrap_nonce"`
	KDFVersion         int    `json:"kdf_version"`
	ExportKeyHash      string `json:"export_key_hash"`
}

func (r *PasswordChangeFinishRequest) Validate() error {
	if r.RegistrationUpload == "" {
		return domain.ErrMissingField("registration_upload")
	}
	if r.WrappedDRK == "" {
		return domain.ErrMissingField("wrapped_drk")
	}
	if r.WrapNonce == "" {
		return domain.ErrMissingField("wrap_nonce")
	}
	if r.ExportKeyHash == "" {
		return domain.ErrMissingField("export_key_hash")
	}
	return nil
}

func (r *PasswordChangeFinishRequest) DecodeUpload() ([]byte, error)     { return decodeB64(r.RegistrationUpload) }
func (r *PasswordChangeFinishRequest) DecodeWrappedDRK() ([]byte, error) { return decodeB64(r.WrappedDRK) }
func (r *PasswordChangeFinishRequest) DecodeWrapNonce() ([]byte, error)  { return decodeB64(r.WrapNonce) }

// -------- Sessions --------

type SessionsRevokeRequest struct{}

func decodeB64(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, domain.ErrInvalidField("", "not valid base64url")
	}
	return b, nil
}
