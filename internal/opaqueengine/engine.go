// Package opaqueengine wraps github.com/bytemare/opaque to run the server
// side of the OPAQUE-P256-SHA256 protocol for both the user and admin
// cohorts. It never sees a plaintext password, and the export_key produced
// by a successful login is handed to internal/keyschedule by the caller —
// this package has no knowledge of what happens to it afterwards.
package opaqueengine

import (
	"github.com/bytemare/ecc"
	"github.com/bytemare/opaque"

	"github.com/darkauth/server/internal/domain"
)

// Config carries the server's long-term OPAQUE key material. ServerSecretKey
// and ServerPublicKey are an AKE keypair on P-256; OPRFSeed is a per-server
// secret (SHA-256 output length) used to derive per-record OPRF keys.
type Config struct {
	ServerIdentity  []byte
	ServerSecretKey []byte
	ServerPublicKey []byte
	OPRFSeed        []byte
}

// Engine is safe for concurrent use: bytemare/opaque's Server is stateless
// between calls except for the explicit AKE state blob we serialize out to
// OpaqueLoginSession and pass back in on the next call.
type Engine struct {
	cfg    Config
	server *opaque.Server
}

func New(cfg Config) (*Engine, error) {
	conf := opaque.DefaultConfiguration(opaque.P256Sha256)

	server, err := opaque.NewServer(conf)
	if err != nil {
		return nil, domain.ErrCryptoFailed(err)
	}

	if err := server.SetKeyMaterial(cfg.ServerIdentity, cfg.ServerSecretKey, cfg.ServerPublicKey, cfg.OPRFSeed); err != nil {
		return nil, domain.ErrCryptoFailed(err)
	}

	return &Engine{cfg: cfg, server: server}, nil
}

// RegistrationResponse answers a client's registration request with the
// server's OPRF evaluation and public key. credentialIdentifier is a stable,
// non-secret handle for the subject (e.g. the user id).
func (e *Engine) RegistrationResponse(reqBytes, credentialIdentifier []byte) ([]byte, error) {
	req, err := e.server.Deserialize.RegistrationRequest(reqBytes)
	if err != nil {
		return nil, domain.ErrOPAQUEProtocolViolation(err)
	}

	pks, err := ecc.P256Sha256.NewElement().DecodeElement(e.cfg.ServerPublicKey)
	if err != nil {
		return nil, domain.ErrCryptoFailed(err)
	}

	resp := e.server.RegistrationResponse(req, pks, credentialIdentifier, e.cfg.OPRFSeed)

	return resp.Serialize(), nil
}

// FinalizeRegistration validates and returns the envelope/public-key bytes
// to persist as a domain.OpaqueRecord. DarkAuth performs no server-side
// validation of the envelope contents beyond length checks done internally
// by bytemare/opaque on the next GenerateKE2 call — registration finalize
// is purely "store what the client sent".
func (e *Engine) FinalizeRegistration(uploadBytes []byte) (envelope []byte, serverPublicKey []byte, err error) {
	upload, derr := e.server.Deserialize.RegistrationUpload(uploadBytes)
	if derr != nil {
		return nil, nil, domain.ErrOPAQUEProtocolViolation(derr)
	}
	return upload.Serialize(), e.cfg.ServerPublicKey, nil
}

// LoginStart processes a client KE1 against a stored OpaqueRecord and
// returns the KE2 to send back plus the serialized AKE state to persist in
// an OpaqueLoginSession until LoginFinish is called.
func (e *Engine) LoginStart(ke1Bytes []byte, record domain.OpaqueRecord, credentialIdentifier, clientIdentity []byte) (ke2Bytes []byte, akeState []byte, err error) {
	ke1, derr := e.server.Deserialize.KE1(ke1Bytes)
	if derr != nil {
		return nil, nil, domain.ErrOPAQUEProtocolViolation(derr)
	}

	upload, derr := e.server.Deserialize.RegistrationUpload(record.Envelope)
	if derr != nil {
		return nil, nil, domain.ErrOPAQUEProtocolViolation(derr)
	}

	clientRecord := &opaque.ClientRecord{
		CredentialIdentifier: credentialIdentifier,
		ClientIdentity:       clientIdentity,
		RegistrationRecord:   upload,
	}

	ke2, err := e.server.GenerateKE2(ke1, clientRecord)
	if err != nil {
		return nil, nil, domain.ErrOPAQUEProtocolViolation(err)
	}

	return ke2.Serialize(), e.server.SerializeState(), nil
}

// LoginFinish validates the client's KE3 MAC against the AKE state produced
// by LoginStart and returns the negotiated session key. The session key is
// only used as a transport binder for the surrounding TLS/session-issuance
// flow — it is never the export_key used for key wrapping.
func (e *Engine) LoginFinish(ke3Bytes []byte, akeState []byte) (sessionKey []byte, err error) {
	if err := e.server.SetAKEState(akeState); err != nil {
		return nil, domain.ErrOPAQUEProtocolViolation(err)
	}

	ke3, derr := e.server.Deserialize.KE3(ke3Bytes)
	if derr != nil {
		return nil, domain.ErrOPAQUEProtocolViolation(derr)
	}

	if err := e.server.LoginFinish(ke3); err != nil {
		return nil, domain.ErrInvalidCredentials()
	}

	return e.server.SessionKey(), nil
}
