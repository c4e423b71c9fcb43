package tokenlife

import (
	"context"
	"time"

	internalaudit "github.com/MrEthical07/tokenlife/internal/audit"
)

// Principal is the authenticated identity passed between collaborators and
// the engine. Subject is the username embedded in issued tokens.
type Principal struct {
	Subject     string
	Authorities []string
}

// UserRecord is the account view the engine reads and writes through
// [UserDirectory].
type UserRecord struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Authorities  []string
}

// CredentialVerifier authenticates a username/password pair. Implementations
// return [ErrInvalidCredentials] (or an error wrapping it) on rejection.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, password string) (Principal, error)
}

// UserDirectory looks users up and persists password changes. Lookups of
// unknown users return [ErrUserNotFound].
type UserDirectory interface {
	LoadUser(ctx context.Context, username string) (UserRecord, error)
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	FindByID(ctx context.Context, id string) (UserRecord, error)
	Save(ctx context.Context, user UserRecord) error
}

// PasswordHasher produces a self-describing digest for a plaintext password.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// PasswordVerifier checks a plaintext password against a digest.
type PasswordVerifier interface {
	Verify(plain, encodedHash string) (bool, error)
}

// Notifier delivers a plain-text message to an address.
type Notifier interface {
	SendText(ctx context.Context, to, subject, body string) error
}

// MFACodeSender delivers a one-time MFA code to the principal out of band.
type MFACodeSender interface {
	SendMFACode(ctx context.Context, principal Principal, code string) error
}

// PasswordResetRequest is one persisted reset credential. At most one exists
// per user; Used flips to true exactly once.
type PasswordResetRequest struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// ResetRequestStore persists [PasswordResetRequest] rows.
type ResetRequestStore interface {
	// ReplaceForUser deletes every request for req.UserID and inserts req,
	// atomically.
	ReplaceForUser(ctx context.Context, req PasswordResetRequest) error
	// FindByToken returns ErrResetRequestNotFound when no row matches.
	FindByToken(ctx context.Context, token string) (PasswordResetRequest, error)
	// MarkUsed sets used=true on an unused row that has not expired at now,
	// and reports whether this call performed the transition.
	MarkUsed(ctx context.Context, id string, now time.Time) (bool, error)
}

// SignInResult is returned by [Engine.SignIn].
type SignInResult struct {
	AccessToken  string
	RefreshToken string
	Principal    Principal
}

// TokenPair is returned by [Engine.Refresh].
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// MFAChallenge is returned by [Engine.BeginMFA]. The code itself travels
// through the configured [MFACodeSender], never through this value.
type MFAChallenge struct {
	PendingToken string
	Subject      string
	ExpiresAt    time.Time
}

// AccessResult is returned by [Engine.Authenticate].
type AccessResult struct {
	Subject   string
	TokenID   string
	AuthType  string
	ExpiresAt time.Time
}

// AuditEvent is one security-relevant outcome emitted to the configured sink.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs audit events through zap.
type ZapSink = internalaudit.ZapSink

var (
	// NewChannelSink returns a ChannelSink with the given buffer.
	NewChannelSink = internalaudit.NewChannelSink
	// NewJSONWriterSink returns a JSONWriterSink on w.
	NewJSONWriterSink = internalaudit.NewJSONWriterSink
	// NewZapSink returns a ZapSink on logger.
	NewZapSink = internalaudit.NewZapSink
)
