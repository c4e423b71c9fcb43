package tokenlife

import (
	"github.com/MrEthical07/tokenlife/internal/security"
	"github.com/MrEthical07/tokenlife/revocation"
)

// SecurityReport summarises the engine's effective security posture, with
// human-readable warnings for settings operators usually want to revisit.
type SecurityReport = security.Report

// PasswordConfigReport mirrors the argon2id parameters in a SecurityReport.
type PasswordConfigReport = security.PasswordReport

// SecurityReport describes the configuration the engine was built with.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	_, shared := e.store.(*revocation.RedisStore)

	return security.BuildReport(security.ReportInput{
		SigningAlgorithm:  "HS256",
		SigningKeyBytes:   len(e.config.JWT.SigningKey),
		AccessTTL:         e.config.JWT.AccessTTL,
		RefreshTTL:        e.config.JWT.RefreshTTL,
		MFACodeTTL:        e.config.MFA.CodeTTL,
		ResetTokenTTL:     e.config.PasswordReset.TokenTTL,
		MinPasswordLength: e.config.PasswordReset.MinPasswordLength,
		Password: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		StrictRefreshRotation: e.config.Security.StrictRefreshRotation,
		CheckUserOnRefresh:    e.config.Security.CheckUserOnRefresh,
		SharedRevocationStore: shared,
		AuditEnabled:          e.config.Audit.Enabled,
		HasCredentialVerifier: e.verifier != nil,
		HasMFACodeSender:      e.mfaSender != nil,
		HasUserDirectory:      e.users != nil,
		HasResetStore:         e.resets != nil,
		HasNotifier:           e.notifier != nil,
	})
}
