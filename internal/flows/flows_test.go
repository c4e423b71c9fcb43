package flows

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/tokenlife/jwt"
	"github.com/MrEthical07/tokenlife/revocation"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestTokenDeps(t *testing.T) (TokenDeps, *revocation.MemoryStore, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	key, err := jwt.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	codec, err := jwt.NewCodec(jwt.Config{SigningKey: key, Now: clock.Now})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	store := revocation.NewMemoryStore(clock.Now)
	return TokenDeps{
		Codec:      codec,
		Store:      store,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, store, clock
}

func alwaysValid(_ context.Context, username, _ string) (SignInPrincipal, error) {
	return SignInPrincipal{Subject: username, Authorities: []string{"ROLE_USER"}}, nil
}

func TestRunSignInStoresRefreshPointer(t *testing.T) {
	tokens, store, _ := newTestTokenDeps(t)

	res := RunSignIn(context.Background(), "alice", "pw", SignInDeps{Tokens: tokens, VerifyCredentials: alwaysValid})
	if res.Failure != SignInFailureNone {
		t.Fatalf("unexpected failure %v: %v", res.Failure, res.Err)
	}

	pointer, ok, _ := store.Get(context.Background(), tokens.Keys.RefreshPointer("alice"))
	if !ok || pointer != res.RefreshToken {
		t.Fatal("expected refresh pointer to hold the issued refresh token")
	}

	if got := RunValidate(context.Background(), res.AccessToken, jwt.KindAccess, tokens); got.Failure != ValidateFailureNone {
		t.Fatalf("expected access token valid, got %v", got.Failure)
	}
	if got := RunValidate(context.Background(), res.RefreshToken, jwt.KindAccess, tokens); got.Failure != ValidateFailureKindMismatch {
		t.Fatalf("expected refresh token rejected as access, got %v", got.Failure)
	}
}

func TestRunSignInCredentialFailure(t *testing.T) {
	tokens, _, _ := newTestTokenDeps(t)
	bad := errors.New("bad credentials")

	res := RunSignIn(context.Background(), "alice", "pw", SignInDeps{
		Tokens: tokens,
		VerifyCredentials: func(context.Context, string, string) (SignInPrincipal, error) {
			return SignInPrincipal{}, bad
		},
	})
	if res.Failure != SignInFailureCredentials || !errors.Is(res.Err, bad) {
		t.Fatalf("expected credential failure, got %v %v", res.Failure, res.Err)
	}
}

func TestRunRefreshBlacklistsOldToken(t *testing.T) {
	tokens, store, _ := newTestTokenDeps(t)
	ctx := context.Background()

	signIn := RunSignIn(ctx, "alice", "pw", SignInDeps{Tokens: tokens, VerifyCredentials: alwaysValid})
	res := RunRefresh(ctx, signIn.RefreshToken, RefreshDeps{Tokens: tokens})
	if res.Failure != RefreshFailureNone {
		t.Fatalf("unexpected failure %v: %v", res.Failure, res.Err)
	}
	if res.RefreshToken == signIn.RefreshToken || res.AccessToken == signIn.AccessToken {
		t.Fatal("expected fresh tokens")
	}

	blacklisted, _ := store.Exists(ctx, tokens.Keys.Blacklist(signIn.RefreshToken))
	if !blacklisted {
		t.Fatal("expected old refresh token blacklisted")
	}

	again := RunRefresh(ctx, signIn.RefreshToken, RefreshDeps{Tokens: tokens})
	if again.Failure != RefreshFailureBlacklisted {
		t.Fatalf("expected blacklisted failure, got %v", again.Failure)
	}
}

func TestRunRefreshRejectsAccessToken(t *testing.T) {
	tokens, _, _ := newTestTokenDeps(t)
	signIn := RunSignIn(context.Background(), "alice", "pw", SignInDeps{Tokens: tokens, VerifyCredentials: alwaysValid})

	res := RunRefresh(context.Background(), signIn.AccessToken, RefreshDeps{Tokens: tokens})
	if res.Failure != RefreshFailureKindMismatch {
		t.Fatalf("expected kind mismatch, got %v", res.Failure)
	}
}

func TestRunRefreshStrictRotationSingleWinner(t *testing.T) {
	tokens, store, _ := newTestTokenDeps(t)
	ctx := context.Background()
	signIn := RunSignIn(ctx, "alice", "pw", SignInDeps{Tokens: tokens, VerifyCredentials: alwaysValid})

	deps := RefreshDeps{Tokens: tokens, StrictRotation: true, Consumer: store}

	const workers = 12
	var (
		wg     sync.WaitGroup
		wins   atomic.Int32
		reused atomic.Int32
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			switch RunRefresh(ctx, signIn.RefreshToken, deps).Failure {
			case RefreshFailureNone:
				wins.Add(1)
			case RefreshFailureReuse, RefreshFailureBlacklisted:
				reused.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 || reused.Load() != workers-1 {
		t.Fatalf("expected one winner, got wins=%d rejected=%d", wins.Load(), reused.Load())
	}
}

func TestRunRefreshStrictRejectsSupersededToken(t *testing.T) {
	tokens, store, clock := newTestTokenDeps(t)
	ctx := context.Background()
	deps := SignInDeps{Tokens: tokens, VerifyCredentials: alwaysValid}

	first := RunSignIn(ctx, "alice", "pw", deps)
	clock.Advance(time.Millisecond)
	RunSignIn(ctx, "alice", "pw", deps)

	res := RunRefresh(ctx, first.RefreshToken, RefreshDeps{Tokens: tokens, StrictRotation: true, Consumer: store})
	if res.Failure != RefreshFailureReuse {
		t.Fatalf("expected superseded token to be rejected, got %v", res.Failure)
	}
}

func TestRunRefreshSubjectCheck(t *testing.T) {
	tokens, _, _ := newTestTokenDeps(t)
	signIn := RunSignIn(context.Background(), "alice", "pw", SignInDeps{Tokens: tokens, VerifyCredentials: alwaysValid})
	gone := errors.New("user gone")

	res := RunRefresh(context.Background(), signIn.RefreshToken, RefreshDeps{
		Tokens:       tokens,
		CheckSubject: func(context.Context, string) error { return gone },
	})
	if res.Failure != RefreshFailureSubject || !errors.Is(res.Err, gone) {
		t.Fatalf("expected subject failure, got %v %v", res.Failure, res.Err)
	}
}

func TestRunBlacklistUsesRemainingLifetime(t *testing.T) {
	tokens, store, clock := newTestTokenDeps(t)
	ctx := context.Background()
	signIn := RunSignIn(ctx, "alice", "pw", SignInDeps{Tokens: tokens, VerifyCredentials: alwaysValid})

	clock.Advance(10 * time.Minute)
	if res := RunBlacklist(ctx, signIn.AccessToken, tokens); res.Failure != BlacklistFailureNone {
		t.Fatalf("blacklist: %v %v", res.Failure, res.Err)
	}

	clock.Advance(5*time.Minute - time.Millisecond)
	if ok, _ := store.Exists(ctx, tokens.Keys.Blacklist(signIn.AccessToken)); !ok {
		t.Fatal("expected entry to live until token expiry")
	}
	clock.Advance(time.Millisecond)
	if ok, _ := store.Exists(ctx, tokens.Keys.Blacklist(signIn.AccessToken)); ok {
		t.Fatal("expected entry to expire with the token")
	}

	if res := RunBlacklist(ctx, "garbage", tokens); res.Failure != BlacklistFailureToken || !errors.Is(res.Err, jwt.ErrTokenMalformed) {
		t.Fatalf("expected malformed token failure, got %v %v", res.Failure, res.Err)
	}
}

func newTestMFADeps(t *testing.T) (MFADeps, *revocation.MemoryStore, *testClock, *string) {
	t.Helper()

	tokens, store, clock := newTestTokenDeps(t)
	var delivered string
	return MFADeps{
		Tokens:            tokens,
		CodeTTL:           5 * time.Minute,
		CodeDigits:        6,
		VerifyCredentials: alwaysValid,
		SendCode: func(_ context.Context, _ SignInPrincipal, code string) error {
			delivered = code
			return nil
		},
	}, store, clock, &delivered
}

func TestMFAHandshake(t *testing.T) {
	deps, _, _, delivered := newTestMFADeps(t)
	ctx := context.Background()

	begin := RunBeginMFA(ctx, "alice", "pw", deps)
	if begin.Failure != MFAFailureNone {
		t.Fatalf("begin: %v %v", begin.Failure, begin.Err)
	}
	pending, err := deps.Tokens.Codec.Verify(begin.PendingToken)
	if err != nil || pending.AuthType != jwt.AuthMFAPending {
		t.Fatalf("expected mfa_pending token, got %+v err=%v", pending, err)
	}

	if res := RunCompleteMFA(ctx, "alice", "000000x", deps); res.Failure != MFAFailureCodeInvalid {
		t.Fatalf("expected invalid code, got %v", res.Failure)
	}

	res := RunCompleteMFA(ctx, "alice", *delivered, deps)
	if res.Failure != MFAFailureNone {
		t.Fatalf("complete: %v %v", res.Failure, res.Err)
	}
	access, err := deps.Tokens.Codec.Verify(res.AccessToken)
	if err != nil || access.AuthType != jwt.AuthStandard {
		t.Fatalf("expected standard access token, got %+v err=%v", access, err)
	}

	if again := RunCompleteMFA(ctx, "alice", *delivered, deps); again.Failure != MFAFailureCodeInvalid {
		t.Fatalf("expected consumed code to fail, got %v", again.Failure)
	}
}

func TestCompleteMFAWithoutConsumer(t *testing.T) {
	deps, store, _, delivered := newTestMFADeps(t)
	deps.Tokens.Store = getDeleteOnly{store}
	ctx := context.Background()

	RunBeginMFA(ctx, "alice", "pw", deps)
	if res := RunCompleteMFA(ctx, "alice", *delivered, deps); res.Failure != MFAFailureNone {
		t.Fatalf("complete: %v %v", res.Failure, res.Err)
	}
	if res := RunCompleteMFA(ctx, "alice", *delivered, deps); res.Failure != MFAFailureCodeInvalid {
		t.Fatalf("expected single use, got %v", res.Failure)
	}
}

func TestCompleteMFAWithTokenExpired(t *testing.T) {
	deps, _, clock, delivered := newTestMFADeps(t)
	ctx := context.Background()

	begin := RunBeginMFA(ctx, "alice", "pw", deps)
	clock.Advance(5 * time.Minute)

	res := RunCompleteMFAWithToken(ctx, begin.PendingToken, *delivered, deps)
	if res.Failure != MFAFailureCodeExpired {
		t.Fatalf("expected expired, got %v", res.Failure)
	}
}

func TestCompleteMFAWithTokenRevokesPendingToken(t *testing.T) {
	deps, store, _, delivered := newTestMFADeps(t)
	ctx := context.Background()

	begin := RunBeginMFA(ctx, "alice", "pw", deps)
	res := RunCompleteMFAWithToken(ctx, begin.PendingToken, *delivered, deps)
	if res.Failure != MFAFailureNone {
		t.Fatalf("complete: %v %v", res.Failure, res.Err)
	}
	if ok, _ := store.Exists(ctx, deps.Tokens.Keys.Blacklist(begin.PendingToken)); !ok {
		t.Fatal("expected pending token blacklisted")
	}

	// A standard token cannot stand in for a pending token.
	if bad := RunCompleteMFAWithToken(ctx, res.AccessToken, "123456", deps); bad.Failure != MFAFailurePendingToken {
		t.Fatalf("expected pending token failure, got %v", bad.Failure)
	}
}

// getDeleteOnly hides the Consumer capability of the wrapped store.
type getDeleteOnly struct {
	revocation.Store
}

type resetFixture struct {
	mu        sync.Mutex
	clock     *testClock
	users     map[string]ResetUser
	records   map[string]ResetRecord
	hashes    map[string]string
	notified  []string
	notifyErr error
}

var errNoUser = errors.New("no user")

func newResetFixture() *resetFixture {
	return &resetFixture{
		clock:   &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
		users:   map[string]ResetUser{"a@x.com": {ID: "u1", Email: "a@x.com"}},
		records: make(map[string]ResetRecord),
		hashes:  make(map[string]string),
	}
}

func (f *resetFixture) deps() PasswordResetDeps {
	var seq atomic.Int64
	return PasswordResetDeps{
		TokenTTL: 24 * time.Hour,
		Now:      f.clock.Now,
		NewToken: func() (string, error) { return "tok-" + strconv.FormatInt(seq.Add(1), 10), nil },
		NewID:    func() string { return "id-" + strconv.FormatInt(seq.Add(1), 10) },
		FindUserByEmail: func(_ context.Context, email string) (ResetUser, error) {
			u, ok := f.users[email]
			if !ok {
				return ResetUser{}, errNoUser
			}
			return u, nil
		},
		IsUserNotFound: func(err error) bool { return errors.Is(err, errNoUser) },
		ReplaceRequest: func(_ context.Context, record ResetRecord) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			for id, r := range f.records {
				if r.UserID == record.UserID {
					delete(f.records, id)
				}
			}
			f.records[record.ID] = record
			return nil
		},
		FindRequest: func(_ context.Context, token string) (ResetRecord, bool, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			for _, r := range f.records {
				if r.Token == token {
					return r, true, nil
				}
			}
			return ResetRecord{}, false, nil
		},
		MarkUsed: func(_ context.Context, id string, now time.Time) (bool, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			r, ok := f.records[id]
			if !ok || !r.Usable(now) {
				return false, nil
			}
			r.Used = true
			f.records[id] = r
			return true, nil
		},
		HashPassword: func(plain string) (string, error) { return "hash:" + plain, nil },
		UpdatePasswordHash: func(_ context.Context, userID, hash string) error {
			f.mu.Lock()
			f.hashes[userID] = hash
			f.mu.Unlock()
			return nil
		},
		Notify: func(_ context.Context, user ResetUser, token string) error {
			f.mu.Lock()
			f.notified = append(f.notified, token)
			f.mu.Unlock()
			return f.notifyErr
		},
	}
}

func TestPasswordResetLifecycle(t *testing.T) {
	f := newResetFixture()
	deps := f.deps()
	ctx := context.Background()

	req := RunRequestPasswordReset(ctx, "a@x.com", deps)
	if req.Failure != ResetFailureNone {
		t.Fatalf("request: %v %v", req.Failure, req.Err)
	}
	if v := RunValidateResetToken(ctx, req.Token, deps); !v.Valid {
		t.Fatal("expected token valid")
	}

	res := RunResetPassword(ctx, req.Token, "newpw", deps)
	if !res.Success {
		t.Fatalf("reset: %v %v", res.Failure, res.Err)
	}
	if f.hashes["u1"] != "hash:newpw" {
		t.Fatalf("expected stored hash, got %q", f.hashes["u1"])
	}
	if v := RunValidateResetToken(ctx, req.Token, deps); v.Valid {
		t.Fatal("expected used token invalid")
	}
	if again := RunResetPassword(ctx, req.Token, "other", deps); again.Success || again.Failure != ResetFailureInvalidToken {
		t.Fatalf("expected second reset to fail, got %+v", again)
	}
}

func TestPasswordResetSupersede(t *testing.T) {
	f := newResetFixture()
	deps := f.deps()
	ctx := context.Background()

	first := RunRequestPasswordReset(ctx, "a@x.com", deps)
	second := RunRequestPasswordReset(ctx, "a@x.com", deps)
	if len(f.records) != 1 {
		t.Fatalf("expected one active request, got %d", len(f.records))
	}
	if RunResetPassword(ctx, first.Token, "pw1", deps).Success {
		t.Fatal("expected superseded token to fail")
	}
	if !RunResetPassword(ctx, second.Token, "pw2", deps).Success {
		t.Fatal("expected latest token to succeed")
	}
}

func TestPasswordResetExpiryBoundary(t *testing.T) {
	f := newResetFixture()
	deps := f.deps()
	ctx := context.Background()

	req := RunRequestPasswordReset(ctx, "a@x.com", deps)
	f.clock.Advance(24*time.Hour - time.Millisecond)
	if !RunValidateResetToken(ctx, req.Token, deps).Valid {
		t.Fatal("expected token valid before expiry")
	}
	f.clock.Advance(time.Millisecond)
	if RunValidateResetToken(ctx, req.Token, deps).Valid {
		t.Fatal("expected token invalid at expiresAt")
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	f := newResetFixture()
	res := RunRequestPasswordReset(context.Background(), "nobody@x.com", f.deps())
	if res.Failure != ResetFailureUserNotFound {
		t.Fatalf("expected user not found, got %v", res.Failure)
	}
	if len(f.records) != 0 || len(f.notified) != 0 {
		t.Fatal("expected no side effects")
	}
}

func TestPasswordResetNotifyFailureKeepsRecord(t *testing.T) {
	f := newResetFixture()
	f.notifyErr = errors.New("smtp down")
	deps := f.deps()

	res := RunRequestPasswordReset(context.Background(), "a@x.com", deps)
	if res.Failure != ResetFailureNotify || res.Token == "" {
		t.Fatalf("expected notify failure with persisted token, got %+v", res)
	}
	if !RunValidateResetToken(context.Background(), res.Token, deps).Valid {
		t.Fatal("expected persisted token to remain valid")
	}
}

func TestPasswordResetConcurrentSingleWinner(t *testing.T) {
	f := newResetFixture()
	deps := f.deps()
	ctx := context.Background()
	req := RunRequestPasswordReset(ctx, "a@x.com", deps)

	const workers = 10
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if RunResetPassword(ctx, req.Token, "pw", deps).Success {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one successful reset, got %d", wins.Load())
	}
}

func TestCompleteMFADiscardsCodeAfterMaxAttempts(t *testing.T) {
	deps, store, _, delivered := newTestMFADeps(t)
	deps.MaxAttempts = 3
	ctx := context.Background()

	if begin := RunBeginMFA(ctx, "alice", "pw", deps); begin.Failure != MFAFailureNone {
		t.Fatalf("begin failed: %v %v", begin.Failure, begin.Err)
	}
	wrong := "000000"
	if *delivered == wrong {
		wrong = "111111"
	}

	for i := 1; i < deps.MaxAttempts; i++ {
		res := RunCompleteMFA(ctx, "alice", wrong, deps)
		if res.Failure != MFAFailureCodeInvalid || res.AttemptsExhausted {
			t.Fatalf("attempt %d: unexpected result %+v", i, res)
		}
	}
	if ok, _ := store.Exists(ctx, deps.Tokens.Keys.MFACode("alice")); !ok {
		t.Fatal("expected code to survive attempts below the limit")
	}

	res := RunCompleteMFA(ctx, "alice", wrong, deps)
	if res.Failure != MFAFailureCodeInvalid || !res.AttemptsExhausted {
		t.Fatalf("expected final mismatch to exhaust attempts, got %+v", res)
	}
	if ok, _ := store.Exists(ctx, deps.Tokens.Keys.MFACode("alice")); ok {
		t.Fatal("expected code to be discarded")
	}
	if res := RunCompleteMFA(ctx, "alice", *delivered, deps); res.Failure != MFAFailureCodeInvalid {
		t.Fatalf("expected correct code rejected after exhaustion, got %+v", res)
	}

	if begin := RunBeginMFA(ctx, "alice", "pw", deps); begin.Failure != MFAFailureNone {
		t.Fatalf("second begin failed: %v %v", begin.Failure, begin.Err)
	}
	if res := RunCompleteMFA(ctx, "alice", wrong, deps); res.AttemptsExhausted {
		t.Fatal("expected a new code to reset the attempt counter")
	}
	if res := RunCompleteMFA(ctx, "alice", *delivered, deps); res.Failure != MFAFailureNone {
		t.Fatalf("expected new code to complete, got %+v", res)
	}
	if ok, _ := store.Exists(ctx, deps.Tokens.Keys.MFAAttempts("alice")); ok {
		t.Fatal("expected success to clear the attempt counter")
	}
}

// failingBlacklist rejects writes to blacklist keys.
type failingBlacklist struct {
	*revocation.MemoryStore
}

func (s failingBlacklist) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if strings.HasPrefix(key, "blacklist:") {
		return revocation.ErrUnavailable
	}
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

func TestRunRefreshStrictRestoresPointerWhenRevokeFails(t *testing.T) {
	tokens, store, _ := newTestTokenDeps(t)
	ctx := context.Background()
	signIn := RunSignIn(ctx, "alice", "pw", SignInDeps{Tokens: tokens, VerifyCredentials: alwaysValid})

	failing := tokens
	failing.Store = failingBlacklist{store}
	res := RunRefresh(ctx, signIn.RefreshToken, RefreshDeps{Tokens: failing, StrictRotation: true, Consumer: store})
	if res.Failure != RefreshFailureRevokeOld {
		t.Fatalf("expected RefreshFailureRevokeOld, got %v", res.Failure)
	}
	pointer, ok, _ := store.Get(ctx, tokens.Keys.RefreshPointer("alice"))
	if !ok || pointer != signIn.RefreshToken {
		t.Fatalf("expected pointer restored to the presented token, got %q ok=%v", pointer, ok)
	}

	retry := RunRefresh(ctx, signIn.RefreshToken, RefreshDeps{Tokens: tokens, StrictRotation: true, Consumer: store})
	if retry.Failure != RefreshFailureNone {
		t.Fatalf("expected retry to succeed, got %v %v", retry.Failure, retry.Err)
	}
}

func TestRunRefreshStrictRestoresPointerWhenSubjectCheckFails(t *testing.T) {
	tokens, store, _ := newTestTokenDeps(t)
	ctx := context.Background()
	signIn := RunSignIn(ctx, "alice", "pw", SignInDeps{Tokens: tokens, VerifyCredentials: alwaysValid})

	res := RunRefresh(ctx, signIn.RefreshToken, RefreshDeps{
		Tokens:         tokens,
		StrictRotation: true,
		Consumer:       store,
		CheckSubject:   func(context.Context, string) error { return errors.New("directory down") },
	})
	if res.Failure != RefreshFailureSubject {
		t.Fatalf("expected RefreshFailureSubject, got %v", res.Failure)
	}
	if pointer, ok, _ := store.Get(ctx, tokens.Keys.RefreshPointer("alice")); !ok || pointer != signIn.RefreshToken {
		t.Fatalf("expected pointer restored, got %q ok=%v", pointer, ok)
	}
}

func TestPasswordResetUserSaveFailureSpendsToken(t *testing.T) {
	f := newResetFixture()
	deps := f.deps()
	saveErr := errors.New("directory down")
	deps.UpdatePasswordHash = func(context.Context, string, string) error { return saveErr }
	ctx := context.Background()

	req := RunRequestPasswordReset(ctx, "a@x.com", deps)
	res := RunResetPassword(ctx, req.Token, "newpw", deps)
	if res.Success || res.Failure != ResetFailureUserUpdate || !errors.Is(res.Err, saveErr) {
		t.Fatalf("expected user update failure, got %+v", res)
	}
	if v := RunValidateResetToken(ctx, req.Token, deps); v.Valid {
		t.Fatal("expected the claimed token to stay spent")
	}
	if _, ok := f.hashes["u1"]; ok {
		t.Fatal("expected no hash stored")
	}
}
