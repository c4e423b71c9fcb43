package flows

import (
	"context"
	"time"
)

// ResetUser is the flow-local user view needed by password reset.
type ResetUser struct {
	ID    string
	Email string
}

// ResetRecord is the flow-local password reset request row.
type ResetRecord struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Usable reports whether the record can still authorize a reset at now.
func (r ResetRecord) Usable(now time.Time) bool {
	return !r.Used && now.Before(r.ExpiresAt)
}

// ResetFailureKind classifies password reset failures.
type ResetFailureKind int

const (
	ResetFailureNone ResetFailureKind = iota
	ResetFailureUserNotFound
	ResetFailureUserLookup
	ResetFailureTokenGeneration
	ResetFailureStore
	ResetFailureNotify
	ResetFailureInvalidToken
	ResetFailureHash
	ResetFailureUserUpdate
)

// PasswordResetDeps captures password reset dependencies.
type PasswordResetDeps struct {
	TokenTTL time.Duration
	Now      func() time.Time
	NewToken func() (string, error)
	NewID    func() string

	FindUserByEmail func(ctx context.Context, email string) (ResetUser, error)
	IsUserNotFound  func(error) bool

	// ReplaceRequest deletes every prior request for the user and inserts
	// record in one transaction.
	ReplaceRequest func(ctx context.Context, record ResetRecord) error
	FindRequest    func(ctx context.Context, token string) (ResetRecord, bool, error)
	// MarkUsed flips an unexpired used=false row to used=true and reports
	// whether this call won.
	MarkUsed func(ctx context.Context, id string, now time.Time) (bool, error)

	HashPassword       func(plain string) (string, error)
	UpdatePasswordHash func(ctx context.Context, userID, hash string) error

	Notify func(ctx context.Context, user ResetUser, token string) error
}

// RequestResetResult reports the persisted request or failure metadata. A
// notification failure still carries the persisted token.
type RequestResetResult struct {
	Failure ResetFailureKind
	Err     error
	UserID  string
	Token   string
}

// RunRequestPasswordReset supersedes any prior request for the user, persists
// a fresh one, and dispatches the reset link. Notification failure never
// rolls back the persisted request.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) RequestResetResult {
	user, err := deps.FindUserByEmail(ctx, email)
	if err != nil {
		if deps.IsUserNotFound != nil && deps.IsUserNotFound(err) {
			return RequestResetResult{Failure: ResetFailureUserNotFound, Err: err}
		}
		return RequestResetResult{Failure: ResetFailureUserLookup, Err: err}
	}

	token, err := deps.NewToken()
	if err != nil {
		return RequestResetResult{Failure: ResetFailureTokenGeneration, Err: err, UserID: user.ID}
	}

	now := deps.Now()
	record := ResetRecord{
		ID:        deps.NewID(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: now.Add(deps.TokenTTL),
		CreatedAt: now,
	}
	if err := deps.ReplaceRequest(ctx, record); err != nil {
		return RequestResetResult{Failure: ResetFailureStore, Err: err, UserID: user.ID}
	}

	result := RequestResetResult{UserID: user.ID, Token: token}
	if deps.Notify != nil {
		if err := deps.Notify(ctx, user, token); err != nil {
			result.Failure = ResetFailureNotify
			result.Err = err
		}
	}
	return result
}

// ValidateResetResult reports token usability without mutating anything.
type ValidateResetResult struct {
	Failure ResetFailureKind
	Err     error
	Valid   bool
	Record  ResetRecord
}

// RunValidateResetToken is false for absent, used, or expired tokens.
func RunValidateResetToken(ctx context.Context, token string, deps PasswordResetDeps) ValidateResetResult {
	if token == "" {
		return ValidateResetResult{}
	}
	record, found, err := deps.FindRequest(ctx, token)
	if err != nil {
		return ValidateResetResult{Failure: ResetFailureStore, Err: err}
	}
	if !found || !record.Usable(deps.Now()) {
		return ValidateResetResult{Record: record}
	}
	return ValidateResetResult{Valid: true, Record: record}
}

// ResetPasswordResult reports whether the password was replaced.
type ResetPasswordResult struct {
	Failure ResetFailureKind
	Err     error
	UserID  string
	Success bool
}

// RunResetPassword re-validates token, claims the request with a conditional
// update, and stores the new hash on the user. Exactly one concurrent caller
// can claim a given request.
func RunResetPassword(ctx context.Context, token, newPassword string, deps PasswordResetDeps) ResetPasswordResult {
	validation := RunValidateResetToken(ctx, token, deps)
	if validation.Failure != ResetFailureNone {
		return ResetPasswordResult{Failure: validation.Failure, Err: validation.Err}
	}
	if !validation.Valid {
		return ResetPasswordResult{Failure: ResetFailureInvalidToken, UserID: validation.Record.UserID}
	}
	record := validation.Record

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return ResetPasswordResult{Failure: ResetFailureHash, Err: err, UserID: record.UserID}
	}

	claimed, err := deps.MarkUsed(ctx, record.ID, deps.Now())
	if err != nil {
		return ResetPasswordResult{Failure: ResetFailureStore, Err: err, UserID: record.UserID}
	}
	if !claimed {
		return ResetPasswordResult{Failure: ResetFailureInvalidToken, UserID: record.UserID}
	}

	if err := deps.UpdatePasswordHash(ctx, record.UserID, hash); err != nil {
		return ResetPasswordResult{Failure: ResetFailureUserUpdate, Err: err, UserID: record.UserID}
	}
	return ResetPasswordResult{UserID: record.UserID, Success: true}
}
