package http_handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/darkauth/server/internal/application/oidc"
	"github.com/darkauth/server/internal/cryptoutil"
	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/jwks"
	"github.com/darkauth/server/internal/transport/http/dto"
	"github.com/darkauth/server/internal/transport/http/middleware"
	"github.com/darkauth/server/internal/transport/http/response"
)

// OIDCHandler implements discovery, JWKS, the authorization-code pipeline,
// the token endpoint, userinfo, and the ZK crypto endpoints (spec §6).
type OIDCHandler struct {
	svc    *oidc.Service
	keys   *jwks.Manager
	issuer string
}

func NewOIDCHandler(svc *oidc.Service, keys *jwks.Manager, issuer string) *OIDCHandler {
	return &OIDCHandler{svc: svc, keys: keys, issuer: issuer}
}

func (h *OIDCHandler) Discovery(w http.ResponseWriter, r *http.Request) {
	response.OK(w, dto.DiscoveryResponse{
		Issuer:                           h.issuer,
		AuthorizationEndpoint:            h.issuer + "/authorize",
		TokenEndpoint:                    h.issuer + "/token",
		UserinfoEndpoint:                 h.issuer + "/userinfo",
		JWKSURI:                          h.issuer + "/jwks",
		ResponseTypesSupported:           []string{"code"},
		GrantTypesSupported:              []string{"authorization_code", "refresh_token", "client_credentials"},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{"EdDSA"},
		CodeChallengeMethodsSupported:    []string{"S256"},
		ScopesSupported:                  []string{"openid", "email", "profile"},
	})
}

func (h *OIDCHandler) JWKS(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, h.keys.PublicSet())
}

func (h *OIDCHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := oidc.AuthorizeRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		ResponseType:        q.Get("response_type"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		Nonce:               q.Get("nonce"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		ZKPub:               q.Get("zk_pub"),
		Origin:              r.Header.Get("Origin"),
	}

	requestID, err := h.svc.Authorize(r.Context(), req)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.AuthorizeResponse{RequestID: requestID})
}

func (h *OIDCHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req dto.FinalizeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.BindSubject(r.Context(), req.RequestID, req.SubjectID); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Finalize(r.Context(), req.RequestID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.FinalizeResponse{
		Code:      res.Code,
		ZKDRKHash: res.ZKDRKHash,
		DRKJWE:    res.DRKJWE,
	})
}

func (h *OIDCHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if clientID, secret, ok := r.BasicAuth(); ok {
		req.ClientID = clientID
		req.ClientSecret = secret
	}

	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	var result oidc.TokenResult
	var err error

	switch req.GrantType {
	case "authorization_code":
		result, err = h.svc.ExchangeAuthorizationCode(r.Context(), req.ClientID, req.Code, req.RedirectURI, req.CodeVerifier)
	case "refresh_token":
		result, err = h.svc.ExchangeRefreshToken(r.Context(), req.ClientID, req.RefreshToken)
	case "client_credentials":
		result, err = h.svc.ClientCredentials(r.Context(), req.ClientID, cryptoutil.HashToken(req.ClientSecret), req.Scope)
	default:
		err = domain.ErrUnsupportedGrantType(req.GrantType)
	}
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.TokenResponse{
		IDToken:      result.IDToken,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    result.TokenType,
		ExpiresIn:    result.ExpiresIn,
		Scope:        result.Scope,
		ZKDRKHash:    result.ZKDRKHash,
	})
}

func (h *OIDCHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}
	response.OK(w, dto.UserInfoResponse{Sub: subjectID})
}

func (h *OIDCHandler) GetWrappedDRK(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}
	wrk, err := h.svc.GetWrappedRootKey(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.WrappedDRKResponse{
		WrappedDRK: base64.RawURLEncoding.EncodeToString(wrk.Ciphertext),
		WrapNonce:  base64.RawURLEncoding.EncodeToString(wrk.Nonce),
		KDFVersion: wrk.KDFVersion,
	})
}

func (h *OIDCHandler) PutWrappedDRK(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	var req dto.WrappedDRKUploadRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	ciphertext, err := base64.RawURLEncoding.DecodeString(req.WrappedDRK)
	if err != nil {
		response.WriteError(w, r, domain.ErrInvalidField("wrapped_drk", "not valid base64url"))
		return
	}
	nonce, err := base64.RawURLEncoding.DecodeString(req.WrapNonce)
	if err != nil {
		response.WriteError(w, r, domain.ErrInvalidField("wrap_nonce", "not valid base64url"))
		return
	}

	if err := h.svc.PutWrappedRootKey(r.Context(), userID, ciphertext, nonce, req.KDFVersion); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *OIDCHandler) GetEncPublicJWK(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}
	jwk, err := h.svc.GetEncPublicJWK(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.EncPublicJWKResponse{JWK: jwk})
}

func (h *OIDCHandler) PutEncPublicJWK(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	var req dto.EncPublicJWKUploadRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.PutEncPublicJWK(r.Context(), userID, req.JWK); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

// SearchUsers implements GET /api/users as an exact-email lookup; no other
// search field is supported. The router mounts it without any
// authentication middleware.
func (h *OIDCHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("email")))
	if email == "" {
		response.OK(w, dto.UserSearchResponse{Users: []dto.UserSearchResult{}})
		return
	}

	u, err := h.svc.LookupUserByEmail(r.Context(), email)
	if err != nil {
		response.OK(w, dto.UserSearchResponse{Users: []dto.UserSearchResult{}})
		return
	}

	response.OK(w, dto.UserSearchResponse{
		Users: []dto.UserSearchResult{{ID: u.ID, Email: u.Email}},
	})
}
