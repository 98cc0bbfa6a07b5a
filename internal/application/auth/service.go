package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/opaqueengine"
)

// Service orchestrates the user cohort's OPAQUE registration and login
// against the shared opaqueengine.Engine, and issues cohort-scoped sessions
// on success.
type Service struct {
	users    UserRepo
	records  OpaqueRecordRepo
	wrapped  WrappedRootKeyRepo
	logins   LoginSessionStore
	sessions SessionStore
	engine   *opaqueengine.Engine

	loginSessionTTL time.Duration
	refreshTTL      time.Duration
}

type Config struct {
	LoginSessionTTL time.Duration
	RefreshTTL      time.Duration
}

func NewService(users UserRepo, records OpaqueRecordRepo, wrapped WrappedRootKeyRepo, logins LoginSessionStore, sessions SessionStore, engine *opaqueengine.Engine, cfg Config) *Service {
	loginTTL := cfg.LoginSessionTTL
	if loginTTL <= 0 {
		loginTTL = 2 * time.Minute
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Service{
		users:           users,
		records:         records,
		wrapped:         wrapped,
		logins:          logins,
		sessions:        sessions,
		engine:          engine,
		loginSessionTTL: loginTTL,
		refreshTTL:      refreshTTL,
	}
}

// RegisterStartResult carries the OPAQUE registration response plus the
// provisional subject id the client must echo back in RegisterFinish.
type RegisterStartResult struct {
	SubjectID           string
	RegistrationResponse []byte
}

// RegisterStart validates the email is not already registered, provisions a
// subject id, and answers the client's OPAQUE registration request.
func (s *Service) RegisterStart(ctx context.Context, email string, registrationRequest []byte) (RegisterStartResult, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return RegisterStartResult{}, domain.ErrEmailAlreadyExists()
	}

	subjectID := uuid.NewString()
	resp, err := s.engine.RegistrationResponse(registrationRequest, []byte(subjectID))
	if err != nil {
		return RegisterStartResult{}, err
	}

	return RegisterStartResult{SubjectID: subjectID, RegistrationResponse: resp}, nil
}

// RegisterFinish persists the user, its OPAQUE envelope, and the
// client-wrapped Data Root Key as a single logical unit. The server never
// derives or inspects the plaintext DRK.
func (s *Service) RegisterFinish(ctx context.Context, subjectID, email string, registrationUpload, wrappedDRK, wrapNonce []byte, kdfVersion int) (domain.User, error) {
	envelope, serverPub, err := s.engine.FinalizeRegistration(registrationUpload)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.users.Create(ctx, domain.User{ID: subjectID, Email: email, CreatedAt: time.Now()})
	if err != nil {
		return domain.User{}, err
	}

	if err := s.records.Upsert(ctx, domain.OpaqueRecord{
		SubjectID:       subjectID,
		Cohort:          domain.CohortUser,
		Envelope:        envelope,
		ServerPublicKey: serverPub,
		CreatedAt:       time.Now(),
	}); err != nil {
		return domain.User{}, err
	}

	if err := s.wrapped.Upsert(ctx, domain.WrappedRootKey{
		UserID:     subjectID,
		Ciphertext: wrappedDRK,
		Nonce:      wrapNonce,
		KDFVersion: kdfVersion,
		CreatedAt:  time.Now(),
	}); err != nil {
		return domain.User{}, err
	}

	return user, nil
}

// LoginStartResult carries the KE2 message to return to the client and the
// opaque login-session id it must echo back in LoginFinish.
type LoginStartResult struct {
	LoginSessionID string
	KE2            []byte
}

func (s *Service) LoginStart(ctx context.Context, email string, ke1 []byte) (LoginStartResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return LoginStartResult{}, domain.ErrInvalidCredentials()
	}

	record, err := s.records.Get(ctx, user.ID, domain.CohortUser)
	if err != nil {
		return LoginStartResult{}, domain.ErrInvalidCredentials()
	}

	ke2, akeState, err := s.engine.LoginStart(ke1, record, []byte(user.ID), []byte(user.ID))
	if err != nil {
		return LoginStartResult{}, err
	}

	sessID := uuid.NewString()
	if err := s.logins.Create(ctx, domain.OpaqueLoginSession{
		ID:        sessID,
		SubjectID: user.ID,
		Cohort:    domain.CohortUser,
		ServerAKE: akeState,
	}, s.loginSessionTTL); err != nil {
		return LoginStartResult{}, err
	}

	return LoginStartResult{LoginSessionID: sessID, KE2: ke2}, nil
}

// LoginFinishResult reports the authenticated subject plus the user's
// wrapped Data Root Key, which the caller (internal/application/oidc, for
// the direct-session path, or the OIDC authorize flow) returns to the
// client alongside session issuance.
type LoginFinishResult struct {
	User           domain.User
	WrappedRootKey domain.WrappedRootKey
}

func (s *Service) LoginFinish(ctx context.Context, loginSessionID string, ke3 []byte) (LoginFinishResult, error) {
	loginSess, err := s.logins.Consume(ctx, loginSessionID)
	if err != nil {
		return LoginFinishResult{}, domain.ErrInvalidCredentials()
	}

	if _, err := s.engine.LoginFinish(ke3, loginSess.ServerAKE); err != nil {
		return LoginFinishResult{}, err
	}

	user, err := s.users.GetByID(ctx, loginSess.SubjectID)
	if err != nil {
		return LoginFinishResult{}, domain.ErrInvalidCredentials()
	}

	wrk, err := s.wrapped.Get(ctx, user.ID)
	if err != nil {
		return LoginFinishResult{}, err
	}

	return LoginFinishResult{User: user, WrappedRootKey: wrk}, nil
}

// IssueSession creates a cohort-scoped session for an already-authenticated
// subject, returning the opaque refresh token to deliver to the client.
func (s *Service) IssueSession(ctx context.Context, subjectID, clientID string) (refreshToken string, sess domain.Session, err error) {
	sess = domain.Session{
		ID:        uuid.NewString(),
		Cohort:    domain.CohortUser,
		SubjectID: subjectID,
		ClientID:  clientID,
		CreatedAt: time.Now(),
	}
	refreshToken, err = s.sessions.Create(ctx, sess, s.refreshTTL)
	return refreshToken, sess, err
}

// Refresh rotates a refresh token, invalidating the old one atomically
// (property P3: exactly one winner on concurrent refresh).
func (s *Service) Refresh(ctx context.Context, oldRefreshToken string) (newRefreshToken string, sess domain.Session, err error) {
	cur, err := s.sessions.Get(ctx, oldRefreshToken)
	if err != nil {
		return "", domain.Session{}, err
	}
	if cur.Cohort != domain.CohortUser {
		return "", domain.Session{}, domain.ErrRefreshTokenInvalid()
	}
	return s.sessions.Rotate(ctx, oldRefreshToken, s.refreshTTL)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Revoke(ctx, refreshToken)
}

func (s *Service) RevokeAllSessions(ctx context.Context, userID string) error {
	return s.sessions.RevokeAllForSubject(ctx, domain.CohortUser, userID)
}

// ChangePasswordStart re-runs OPAQUE registration against an already
// authenticated subject's own subject id, producing a fresh envelope without
// touching the stored one until ChangePasswordFinish commits it.
func (s *Service) ChangePasswordStart(ctx context.Context, subjectID string, registrationRequest []byte) ([]byte, error) {
	return s.engine.RegistrationResponse(registrationRequest, []byte(subjectID))
}

// ChangePasswordFinish replaces the subject's OPAQUE envelope and rewraps
// the Data Root Key in one logical unit.
func (s *Service) ChangePasswordFinish(ctx context.Context, subjectID string, registrationUpload, wrappedDRK, wrapNonce []byte, kdfVersion int) error {
	envelope, serverPub, err := s.engine.FinalizeRegistration(registrationUpload)
	if err != nil {
		return err
	}

	if err := s.records.Upsert(ctx, domain.OpaqueRecord{
		SubjectID:       subjectID,
		Cohort:          domain.CohortUser,
		Envelope:        envelope,
		ServerPublicKey: serverPub,
		UpdatedAt:       time.Now(),
	}); err != nil {
		return err
	}

	return s.wrapped.Upsert(ctx, domain.WrappedRootKey{
		UserID:     subjectID,
		Ciphertext: wrappedDRK,
		Nonce:      wrapNonce,
		KDFVersion: kdfVersion,
		UpdatedAt:  time.Now(),
	})
}
