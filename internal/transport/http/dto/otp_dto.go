package dto

import "github.com/darkauth/server/internal/domain"

// -------- OTP (TOTP) gate, spec §4.6 --------

type OTPSetupInitResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

type OTPCodeRequest struct {
	Code string `json:"code"`
}

func (r *OTPCodeRequest) Validate() error {
	if r.Code == "" {
		return domain.ErrMissingField("code")
	}
	return nil
}

type OTPStatusResponse struct {
	Status string `json:"status"`
}

type OTPBackupCodesResponse struct {
	Codes []string `json:"codes"`
}

type OTPBackupCodeRequest struct {
	Code string `json:"code"`
}

func (r *OTPBackupCodeRequest) Validate() error {
	if r.Code == "" {
		return domain.ErrMissingField("code")
	}
	return nil
}
