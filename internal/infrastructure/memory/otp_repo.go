package memory

import (
	"context"
	"sync"
	"time"

	"github.com/darkauth/server/internal/domain"
)

type OTPRepo struct {
	mu      sync.Mutex
	configs map[string]domain.OTPConfig
	backup  map[string][]domain.OTPBackupCode // userID -> codes
}

func NewOTPRepo() *OTPRepo {
	return &OTPRepo{
		configs: make(map[string]domain.OTPConfig),
		backup:  make(map[string][]domain.OTPBackupCode),
	}
}

func (r *OTPRepo) Get(_ context.Context, userID string) (domain.OTPConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[userID]
	if !ok {
		return domain.OTPConfig{}, domain.ErrUserNotFound()
	}
	return cfg, nil
}

func (r *OTPRepo) Create(_ context.Context, cfg domain.OTPConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg.CreatedAt = time.Now()
	cfg.ConfirmedAt = nil
	cfg.FailureCount = 0
	cfg.LockedUntil = nil
	cfg.LastUsedStep = 0
	r.configs[cfg.UserID] = cfg
	return nil
}

func (r *OTPRepo) Confirm(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	now := time.Now()
	cfg.ConfirmedAt = &now
	r.configs[userID] = cfg
	return nil
}

func (r *OTPRepo) RecordFailure(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[userID]
	if !ok {
		return 0, domain.ErrUserNotFound()
	}
	cfg.FailureCount++
	r.configs[userID] = cfg
	return cfg.FailureCount, nil
}

func (r *OTPRepo) Lock(_ context.Context, userID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	cfg.LockedUntil = &until
	r.configs[userID] = cfg
	return nil
}

func (r *OTPRepo) ResetFailures(_ context.Context, userID string, lastUsedStep int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	cfg.FailureCount = 0
	cfg.LockedUntil = nil
	cfg.LastUsedStep = lastUsedStep
	r.configs[userID] = cfg
	return nil
}

func (r *OTPRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.configs, userID)
	delete(r.backup, userID)
	return nil
}

func (r *OTPRepo) AddBackupCodes(_ context.Context, userID string, codeHashes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range codeHashes {
		r.backup[userID] = append(r.backup[userID], domain.OTPBackupCode{UserID: userID, CodeHash: h})
	}
	return nil
}

func (r *OTPRepo) ConsumeBackupCode(_ context.Context, userID, codeHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := r.backup[userID]
	for i, c := range codes {
		if c.CodeHash == codeHash && c.UsedAt == nil {
			now := time.Now()
			codes[i].UsedAt = &now
			return true, nil
		}
	}
	return false, nil
}
