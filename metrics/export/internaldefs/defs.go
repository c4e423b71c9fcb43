package internaldefs

import (
	"github.com/MrEthical07/tokenlife"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   tokenlife.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   tokenlife.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: tokenlife.MetricSignInSuccess, Name: "tokenlife_sign_in_success_total", Help: "Successful sign-ins."},
	{ID: tokenlife.MetricSignInFailure, Name: "tokenlife_sign_in_failure_total", Help: "Rejected sign-ins."},
	{ID: tokenlife.MetricRefreshSuccess, Name: "tokenlife_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: tokenlife.MetricRefreshFailure, Name: "tokenlife_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: tokenlife.MetricRefreshReuseRejected, Name: "tokenlife_refresh_reuse_rejected_total", Help: "Refresh tokens rejected as rotated, revoked, or superseded."},
	{ID: tokenlife.MetricTokenBlacklisted, Name: "tokenlife_token_blacklisted_total", Help: "Tokens added to the blacklist."},
	{ID: tokenlife.MetricValidateRejected, Name: "tokenlife_validate_rejected_total", Help: "Tokens rejected by validation."},
	{ID: tokenlife.MetricMFAChallengeIssued, Name: "tokenlife_mfa_challenge_issued_total", Help: "MFA challenges issued."},
	{ID: tokenlife.MetricMFASuccess, Name: "tokenlife_mfa_success_total", Help: "Completed MFA handshakes."},
	{ID: tokenlife.MetricMFAFailure, Name: "tokenlife_mfa_failure_total", Help: "Failed MFA completions."},
	{ID: tokenlife.MetricPasswordResetRequest, Name: "tokenlife_password_reset_request_total", Help: "Password reset requests."},
	{ID: tokenlife.MetricPasswordResetSuccess, Name: "tokenlife_password_reset_success_total", Help: "Completed password resets."},
	{ID: tokenlife.MetricPasswordResetFailure, Name: "tokenlife_password_reset_failure_total", Help: "Rejected password resets."},
	{ID: tokenlife.MetricNotificationFailure, Name: "tokenlife_notification_failure_total", Help: "Failed notification deliveries."},
	{ID: tokenlife.MetricSignOut, Name: "tokenlife_sign_out_total", Help: "Sign-outs."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenlife.MetricValidateLatency, Name: "tokenlife_validate_latency_seconds", Help: "Access token validation latency."},
	{ID: tokenlife.MetricRefreshLatency, Name: "tokenlife_refresh_latency_seconds", Help: "Refresh rotation latency."},
}

const AuditDroppedName = "tokenlife_audit_dropped_total"

const AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."

// HistogramBounds are the finite upper bounds in seconds; a final +Inf
// bucket follows.
var HistogramBounds = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters
// that flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"inf",
}

// NormalizeBuckets pads or truncates raw to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
