package tokenlife

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tokenlife/password"
)

const (
	alicePassword = "correct-pw"
	aliceEmail    = "a@x.com"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
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

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func newTestHasher(t testing.TB) *password.Argon2 {
	t.Helper()
	cfg := testConfig().Password
	h, err := password.NewArgon2(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]UserRecord
}

func newFakeDirectory(t testing.TB) *fakeDirectory {
	t.Helper()
	hash, err := newTestHasher(t).Hash(alicePassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &fakeDirectory{users: map[string]UserRecord{
		"alice": {ID: "u-1", Username: "alice", Email: aliceEmail, PasswordHash: hash, Authorities: []string{"ROLE_USER"}},
		"bob":   {ID: "u-2", Username: "bob", Email: "b@x.com", PasswordHash: hash, Authorities: []string{"ROLE_USER", "ROLE_ADMIN"}},
	}}
}

func (d *fakeDirectory) LoadUser(_ context.Context, username string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[username]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (d *fakeDirectory) FindByID(_ context.Context, id string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.ID == id {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (d *fakeDirectory) Save(_ context.Context, user UserRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.Username] = user
	return nil
}

func (d *fakeDirectory) remove(username string) {
	d.mu.Lock()
	delete(d.users, username)
	d.mu.Unlock()
}

type fakeResetStore struct {
	mu   sync.Mutex
	rows map[string]PasswordResetRequest
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{rows: map[string]PasswordResetRequest{}}
}

func (s *fakeResetStore) ReplaceForUser(_ context.Context, req PasswordResetRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.rows {
		if row.UserID == req.UserID {
			delete(s.rows, id)
		}
	}
	s.rows[req.ID] = req
	return nil
}

func (s *fakeResetStore) FindByToken(_ context.Context, token string) (PasswordResetRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.Token == token {
			return row, nil
		}
	}
	return PasswordResetRequest{}, ErrResetRequestNotFound
}

func (s *fakeResetStore) MarkUsed(_ context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.Used || !now.Before(row.ExpiresAt) {
		return false, nil
	}
	row.Used = true
	s.rows[id] = row
	return true, nil
}

func (s *fakeResetStore) forUser(userID string) []PasswordResetRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PasswordResetRequest
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out
}

type sentMessage struct {
	to, subject, body string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail error
}

func (n *recordingNotifier) SendText(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, sentMessage{to: to, subject: subject, body: body})
	return nil
}

func (n *recordingNotifier) last(t *testing.T) sentMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("expected a sent message")
	}
	return n.sent[len(n.sent)-1]
}

type recordingCodeSender struct {
	mu    sync.Mutex
	codes map[string]string
	fail  error
}

func (s *recordingCodeSender) SendMFACode(_ context.Context, p Principal, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if s.codes == nil {
		s.codes = map[string]string{}
	}
	s.codes[p.Subject] = code
	return nil
}

func (s *recordingCodeSender) code(subject string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[subject]
}

type engineFixture struct {
	engine   *Engine
	mr       *miniredis.Miniredis
	clock    *testClock
	users    *fakeDirectory
	resets   *fakeResetStore
	notifier *recordingNotifier
	codes    *recordingCodeSender
}

func newTestEngine(t testing.TB, mutate func(*Config)) *engineFixture {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr, rdb := newTestRedis(t)
	f := &engineFixture{
		mr:       mr,
		clock:    newTestClock(),
		users:    newFakeDirectory(t),
		resets:   newFakeResetStore(),
		notifier: &recordingNotifier{},
		codes:    &recordingCodeSender{},
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(f.users).
		WithResetRequestStore(f.resets).
		WithNotifier(f.notifier).
		WithMFACodeSender(f.codes).
		WithClock(f.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	f.engine = engine
	return f
}

func (f *engineFixture) signIn(t *testing.T, username string) *SignInResult {
	t.Helper()
	res, err := f.engine.SignIn(context.Background(), username, alicePassword)
	if err != nil {
		t.Fatalf("SignIn(%s): %v", username, err)
	}
	return res
}

var errDeliveryDown = errors.New("smtp: connection refused")
