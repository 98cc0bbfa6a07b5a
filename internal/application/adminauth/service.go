package adminauth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/logger"
	"github.com/darkauth/server/internal/opaqueengine"
)

// Service runs the admin cohort's OPAQUE registration/login against the
// same engine as the user cohort, plus RBAC management operations over
// other admins.
type Service struct {
	admins   AdminRepo
	records  OpaqueRecordRepo
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

func NewService(admins AdminRepo, records OpaqueRecordRepo, logins LoginSessionStore, sessions SessionStore, engine *opaqueengine.Engine, cfg Config) *Service {
	loginTTL := cfg.LoginSessionTTL
	if loginTTL <= 0 {
		loginTTL = 2 * time.Minute
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 12 * time.Hour
	}
	return &Service{
		admins:          admins,
		records:         records,
		logins:          logins,
		sessions:        sessions,
		engine:          engine,
		loginSessionTTL: loginTTL,
		refreshTTL:      refreshTTL,
	}
}

type RegisterStartResult struct {
	SubjectID            string
	RegistrationResponse []byte
}

// RegisterStart is reached only through /admin/register, which the router
// guards with admin authentication and the write role: an existing
// write-role admin creates another admin. There is no public admin
// self-registration endpoint, and the bootstrap-admin command does not
// create admin records.
func (s *Service) RegisterStart(ctx context.Context, email string, registrationRequest []byte) (RegisterStartResult, error) {
	if _, err := s.admins.GetByEmail(ctx, email); err == nil {
		return RegisterStartResult{}, domain.ErrEmailAlreadyExists()
	}

	subjectID := uuid.NewString()
	resp, err := s.engine.RegistrationResponse(registrationRequest, []byte(subjectID))
	if err != nil {
		return RegisterStartResult{}, err
	}
	return RegisterStartResult{SubjectID: subjectID, RegistrationResponse: resp}, nil
}

func (s *Service) RegisterFinish(ctx context.Context, subjectID, email, role string, registrationUpload []byte) (domain.AdminUser, error) {
	if !domain.IsValidAdminRole(role) {
		return domain.AdminUser{}, domain.ErrInvalidField("role", "must be read or write")
	}

	envelope, serverPub, err := s.engine.FinalizeRegistration(registrationUpload)
	if err != nil {
		return domain.AdminUser{}, err
	}

	admin, err := s.admins.Create(ctx, domain.AdminUser{ID: subjectID, Email: email, Role: role, CreatedAt: time.Now()})
	if err != nil {
		return domain.AdminUser{}, err
	}

	if err := s.records.Upsert(ctx, domain.OpaqueRecord{
		SubjectID:       subjectID,
		Cohort:          domain.CohortAdmin,
		Envelope:        envelope,
		ServerPublicKey: serverPub,
		CreatedAt:       time.Now(),
	}); err != nil {
		return domain.AdminUser{}, err
	}

	return admin, nil
}

type LoginStartResult struct {
	LoginSessionID string
	KE2            []byte
}

func (s *Service) LoginStart(ctx context.Context, email string, ke1 []byte) (LoginStartResult, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		return LoginStartResult{}, domain.ErrInvalidCredentials()
	}

	record, err := s.records.Get(ctx, admin.ID, domain.CohortAdmin)
	if err != nil {
		return LoginStartResult{}, domain.ErrInvalidCredentials()
	}

	ke2, akeState, err := s.engine.LoginStart(ke1, record, []byte(admin.ID), []byte(admin.ID))
	if err != nil {
		return LoginStartResult{}, err
	}

	sessID := uuid.NewString()
	if err := s.logins.Create(ctx, domain.OpaqueLoginSession{
		ID:        sessID,
		SubjectID: admin.ID,
		Cohort:    domain.CohortAdmin,
		ServerAKE: akeState,
	}, s.loginSessionTTL); err != nil {
		return LoginStartResult{}, err
	}

	return LoginStartResult{LoginSessionID: sessID, KE2: ke2}, nil
}

type LoginFinishResult struct {
	Admin domain.AdminUser
}

func (s *Service) LoginFinish(ctx context.Context, loginSessionID string, ke3 []byte) (LoginFinishResult, error) {
	loginSess, err := s.logins.Consume(ctx, loginSessionID)
	if err != nil {
		return LoginFinishResult{}, domain.ErrInvalidCredentials()
	}

	if _, err := s.engine.LoginFinish(ke3, loginSess.ServerAKE); err != nil {
		return LoginFinishResult{}, err
	}

	admin, err := s.admins.GetByID(ctx, loginSess.SubjectID)
	if err != nil {
		return LoginFinishResult{}, domain.ErrInvalidCredentials()
	}

	return LoginFinishResult{Admin: admin}, nil
}

func (s *Service) IssueSession(ctx context.Context, subjectID string) (refreshToken string, sess domain.Session, err error) {
	sess = domain.Session{
		ID:        uuid.NewString(),
		Cohort:    domain.CohortAdmin,
		SubjectID: subjectID,
		CreatedAt: time.Now(),
	}
	refreshToken, err = s.sessions.Create(ctx, sess, s.refreshTTL)
	return refreshToken, sess, err
}

func (s *Service) Refresh(ctx context.Context, oldRefreshToken string) (newRefreshToken string, sess domain.Session, err error) {
	cur, err := s.sessions.Get(ctx, oldRefreshToken)
	if err != nil {
		return "", domain.Session{}, err
	}
	if cur.Cohort != domain.CohortAdmin {
		return "", domain.Session{}, domain.ErrRefreshTokenInvalid()
	}
	return s.sessions.Rotate(ctx, oldRefreshToken, s.refreshTTL)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Revoke(ctx, refreshToken)
}

// SetRole applies an RBAC role change to targetAdminID, enforcing:
// actor must hold write role, an admin cannot change their own role, and
// the last write-role admin can never be demoted.
func (s *Service) SetRole(ctx context.Context, actorID, actorRole, targetAdminID, newRole string) error {
	actorID = strings.TrimSpace(actorID)
	targetAdminID = strings.TrimSpace(targetAdminID)
	newRole = strings.TrimSpace(newRole)

	audit := func(result string, err error) {
		ev := logger.Logger.Info()
		if err != nil {
			ev = logger.Logger.Warn()
		}
		ev.Str("action", "admin.set_role").
			Str("actor_id", actorID).
			Str("target_id", targetAdminID).
			Str("result", result).
			Msg("admin role change")
	}

	if targetAdminID == "" {
		err := domain.ErrMissingField("admin_id")
		audit("error", err)
		return err
	}
	if !domain.IsValidAdminRole(newRole) {
		err := domain.ErrInvalidField("role", "invalid role")
		audit("error", err)
		return err
	}
	if domain.AdminRoleRank(actorRole) < domain.AdminRoleRank(string(domain.AdminRoleWrite)) {
		err := domain.ErrForbidden()
		audit("error", err)
		return err
	}
	if actorID != "" && actorID == targetAdminID {
		err := domain.ErrCannotAffectSelf()
		audit("error", err)
		return err
	}

	target, err := s.admins.GetByID(ctx, targetAdminID)
	if err != nil {
		audit("error", err)
		return err
	}

	if target.Role == string(domain.AdminRoleWrite) && newRole != string(domain.AdminRoleWrite) {
		cnt, err := s.admins.CountByRole(ctx, domain.AdminRoleWrite)
		if err != nil {
			audit("error", err)
			return err
		}
		if cnt <= 1 {
			err := domain.ErrLastAdminProtected()
			audit("error", err)
			return err
		}
	}

	if err := s.admins.SetRole(ctx, targetAdminID, domain.AdminRole(newRole)); err != nil {
		audit("error", err)
		return err
	}

	audit("success", nil)
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.AdminUser, error) {
	return s.admins.List(ctx)
}
