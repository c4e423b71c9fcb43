// Package memory provides in-process implementations of the tokenlife
// persistence collaborators. Data is lost on restart.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/tokenlife"
)

var (
	_ tokenlife.UserDirectory     = (*Users)(nil)
	_ tokenlife.ResetRequestStore = (*ResetRequests)(nil)
)

// ErrDuplicateUser is returned by Users.Create when the username or email is
// already taken.
var ErrDuplicateUser = errors.New("memory: duplicate user")

// Users is a mutex-guarded user directory keyed by ID.
type Users struct {
	mu   sync.RWMutex
	byID map[string]tokenlife.UserRecord
}

func NewUsers() *Users {
	return &Users{byID: make(map[string]tokenlife.UserRecord)}
}

// Create inserts a user that does not exist yet.
func (u *Users) Create(user tokenlife.UserRecord) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.byID {
		if existing.ID == user.ID || existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicateUser
		}
	}
	u.byID[user.ID] = clone(user)
	return nil
}

func (u *Users) find(match func(tokenlife.UserRecord) bool) (tokenlife.UserRecord, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for _, user := range u.byID {
		if match(user) {
			return clone(user), nil
		}
	}
	return tokenlife.UserRecord{}, tokenlife.ErrUserNotFound
}

func (u *Users) LoadUser(_ context.Context, username string) (tokenlife.UserRecord, error) {
	return u.find(func(r tokenlife.UserRecord) bool { return r.Username == username })
}

func (u *Users) FindByEmail(_ context.Context, email string) (tokenlife.UserRecord, error) {
	return u.find(func(r tokenlife.UserRecord) bool { return strings.EqualFold(r.Email, email) })
}

func (u *Users) FindByID(_ context.Context, id string) (tokenlife.UserRecord, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.byID[id]
	if !ok {
		return tokenlife.UserRecord{}, tokenlife.ErrUserNotFound
	}
	return clone(user), nil
}

// Save upserts by ID.
func (u *Users) Save(_ context.Context, user tokenlife.UserRecord) error {
	if user.ID == "" {
		return errors.New("memory: save user: empty id")
	}
	u.mu.Lock()
	u.byID[user.ID] = clone(user)
	u.mu.Unlock()
	return nil
}

func clone(user tokenlife.UserRecord) tokenlife.UserRecord {
	if user.Authorities != nil {
		user.Authorities = append([]string(nil), user.Authorities...)
	}
	return user
}

// ResetRequests holds at most one reset request per user.
type ResetRequests struct {
	mu   sync.Mutex
	rows map[string]tokenlife.PasswordResetRequest
}

func NewResetRequests() *ResetRequests {
	return &ResetRequests{rows: make(map[string]tokenlife.PasswordResetRequest)}
}

func (s *ResetRequests) ReplaceForUser(_ context.Context, req tokenlife.PasswordResetRequest) error {
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

func (s *ResetRequests) FindByToken(_ context.Context, token string) (tokenlife.PasswordResetRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.Token == token {
			return row, nil
		}
	}
	return tokenlife.PasswordResetRequest{}, tokenlife.ErrResetRequestNotFound
}

func (s *ResetRequests) MarkUsed(_ context.Context, id string, now time.Time) (bool, error) {
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

// DeleteExpired drops rows whose expiry is at or before now.
func (s *ResetRequests) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, row := range s.rows {
		if !now.Before(row.ExpiresAt) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}
