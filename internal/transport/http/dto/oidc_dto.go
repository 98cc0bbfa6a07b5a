package dto

import (
	"github.com/darkauth/server/internal/domain"
)

// -------- GET /authorize --------

type AuthorizeResponse struct {
	RequestID string `json:"request_id"`
}

// FinalizeRequest binds a completed OPAQUE login to a pending authorization
// request (spec §4.4-4.5).
type FinalizeRequest struct {
	RequestID string `json:"request_id"`
	SubjectID string `json:"subject_id"`
}

func (r *FinalizeRequest) Validate() error {
	if r.RequestID == "" {
		return domain.ErrMissingField("request_id")
	}
	if r.SubjectID == "" {
		return domain.ErrMissingField("subject_id")
	}
	return nil
}

type FinalizeResponse struct {
	Code      string `json:"code"`
	ZKDRKHash string `json:"zk_drk_hash,omitempty"`
	DRKJWE    string `json:"drk_jwe,omitempty"`
}

// -------- POST /token --------

// TokenRequest covers all three grants; fields unused by a given grant are
// simply left zero-valued (standard OAuth form-encoded shape, spec §6).
type TokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	CodeVerifier string `json:"code_verifier,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

func (r *TokenRequest) Validate() error {
	switch r.GrantType {
	case "authorization_code":
		if r.Code == "" {
			return domain.ErrMissingField("code")
		}
		if r.RedirectURI == "" {
			return domain.ErrMissingField("redirect_uri")
		}
	case "refresh_token":
		if r.RefreshToken == "" {
			return domain.ErrMissingField("refresh_token")
		}
	case "client_credentials":
		if r.ClientID == "" {
			return domain.ErrMissingField("client_id")
		}
	case "":
		return domain.ErrMissingField("grant_type")
	default:
		return domain.ErrUnsupportedGrantType(r.GrantType)
	}
	return nil
}

type TokenResponse struct {
	IDToken      string `json:"id_token,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	ZKDRKHash    string `json:"zk_drk_hash,omitempty"`
}

// -------- GET /userinfo --------

type UserInfoResponse struct {
	Sub           string `json:"sub"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
}

// -------- GET /.well-known/openid-configuration --------

type DiscoveryResponse struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	UserinfoEndpoint                 string   `json:"userinfo_endpoint"`
	JWKSURI                          string   `json:"jwks_uri"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	GrantTypesSupported              []string `json:"grant_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	CodeChallengeMethodsSupported    []string `json:"code_challenge_methods_supported"`
	ScopesSupported                  []string `json:"scopes_supported"`
}

// -------- crypto endpoints --------

type WrappedDRKResponse struct {
	WrappedDRK string `json:"wrapped_drk"`
	WrapNonce  string `json:"wrap_nonce"`
	KDFVersion int    `json:"kdf_version"`
}

type WrappedDRKUploadRequest struct {
	WrappedDRK string `json:"wrapped_drk"`
	WrapNonce  string `json:"wrap_nonce"`
	KDFVersion int    `json:"kdf_version"`
}

func (r *WrappedDRKUploadRequest) Validate() error {
	if r.WrappedDRK == "" {
		return domain.ErrMissingField("wrapped_drk")
	}
	if len(r.WrappedDRK) > (10*1024*4)/3+8 {
		return domain.ErrInvalidField("wrapped_drk", "exceeds 10 KiB")
	}
	if r.WrapNonce == "" {
		return domain.ErrMissingField("wrap_nonce")
	}
	return nil
}

type EncPublicJWKUploadRequest struct {
	JWK string `json:"jwk"`
}

func (r *EncPublicJWKUploadRequest) Validate() error {
	if r.JWK == "" {
		return domain.ErrMissingField("jwk")
	}
	return nil
}

type EncPublicJWKResponse struct {
	JWK string `json:"jwk"`
}

// -------- GET /api/users --------

type UserSearchResult struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type UserSearchResponse struct {
	Users []UserSearchResult `json:"users"`
}
