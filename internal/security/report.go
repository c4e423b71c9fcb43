package security

import "time"

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type Report struct {
	SigningAlgorithm      string
	SigningKeyBytes       int
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	MFACodeTTL            time.Duration
	ResetTokenTTL         time.Duration
	MinPasswordLength     int
	Argon2                PasswordReport
	StrictRefreshRotation bool
	CheckUserOnRefresh    bool
	SharedRevocationStore bool
	AuditEnabled          bool
	MFAReady              bool
	PasswordResetReady    bool
	Warnings              []string
}

type ReportInput struct {
	SigningAlgorithm      string
	SigningKeyBytes       int
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	MFACodeTTL            time.Duration
	ResetTokenTTL         time.Duration
	MinPasswordLength     int
	Password              PasswordReport
	StrictRefreshRotation bool
	CheckUserOnRefresh    bool
	SharedRevocationStore bool
	AuditEnabled          bool
	HasCredentialVerifier bool
	HasMFACodeSender      bool
	HasUserDirectory      bool
	HasResetStore         bool
	HasNotifier           bool
}

const (
	WarnProcessLocalStore = "revocation store is process-local; revocations are not shared between instances"
	WarnLooseRotation     = "strict refresh rotation is off; concurrent refreshes of one token may both succeed"
	WarnShortPasswords    = "minimum password length is below 8"
	WarnNoNotifier        = "password reset is configured without a notifier; reset links are not delivered"
)

func BuildReport(input ReportInput) Report {
	r := Report{
		SigningAlgorithm:      input.SigningAlgorithm,
		SigningKeyBytes:       input.SigningKeyBytes,
		AccessTTL:             input.AccessTTL,
		RefreshTTL:            input.RefreshTTL,
		MFACodeTTL:            input.MFACodeTTL,
		ResetTokenTTL:         input.ResetTokenTTL,
		MinPasswordLength:     input.MinPasswordLength,
		Argon2:                input.Password,
		StrictRefreshRotation: input.StrictRefreshRotation,
		CheckUserOnRefresh:    input.CheckUserOnRefresh,
		SharedRevocationStore: input.SharedRevocationStore,
		AuditEnabled:          input.AuditEnabled,
		MFAReady:              input.HasCredentialVerifier && input.HasMFACodeSender,
		PasswordResetReady:    input.HasUserDirectory && input.HasResetStore,
	}

	if !input.SharedRevocationStore {
		r.Warnings = append(r.Warnings, WarnProcessLocalStore)
	}
	if !input.StrictRefreshRotation {
		r.Warnings = append(r.Warnings, WarnLooseRotation)
	}
	if r.PasswordResetReady {
		if input.MinPasswordLength < 8 {
			r.Warnings = append(r.Warnings, WarnShortPasswords)
		}
		if !input.HasNotifier {
			r.Warnings = append(r.Warnings, WarnNoNotifier)
		}
	}
	return r
}
