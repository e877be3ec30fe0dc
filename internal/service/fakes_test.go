package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/smartlearning/auth-service/internal/model"
	"github.com/smartlearning/auth-service/internal/repository"
	"github.com/smartlearning/auth-service/internal/utils"
)

// In-memory fakes implementing the store interfaces. They mirror the
// contracts of the SQL repositories, including sql.ErrNoRows sentinels and
// the atomic newest-first OTP consumption.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[string]*model.User // keyed by email
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*model.User{}}
}

func (f *fakeUserStore) add(u model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	f.users[u.Email] = &u
	return &u
}

func (f *fakeUserStore) Create(_ context.Context, email, password, fullName string, role model.Role, cost int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := f.users[email]; ok {
		return 0, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	f.nextID++
	f.users[email] = &model.User{
		ID:           f.nextID,
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         role,
		Status:       model.StatusPending,
	}
	return f.nextID, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return *u, nil
}

func (f *fakeUserStore) Activate(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			u.Status = model.StatusActive
			u.EmailVerified = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeUserStore) DeletePendingByEmail(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	u, ok := f.users[email]
	if !ok || u.Status != model.StatusPending || u.EmailVerified {
		return false, nil
	}
	delete(f.users, email)
	return true, nil
}

type fakeOTP struct {
	id        uint64
	userID    uint64
	code      string
	purpose   string
	used      bool
	expiresAt time.Time
	createdAt time.Time
}

type fakeOTPStore struct {
	mu      sync.Mutex
	nextID  uint64
	records []*fakeOTP
	failErr error // returned by Create when set
}

func (f *fakeOTPStore) Create(_ context.Context, userID uint64, code, purpose string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.nextID++
	f.records = append(f.records, &fakeOTP{
		id: f.nextID, userID: userID, code: code, purpose: purpose,
		expiresAt: expiresAt, createdAt: time.Now().UTC(),
	})
	return nil
}

// Consume mirrors OTPRepo.Consume: newest matching unused record wins, the
// used flag flips exactly once, and an expired match is consumed before
// being reported expired.
func (f *fakeOTPStore) Consume(_ context.Context, userID uint64, code string, purposes []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := map[string]bool{}
	for _, p := range purposes {
		allowed[p] = true
	}
	var newest *fakeOTP
	for _, r := range f.records {
		if r.userID != userID || r.code != code || r.used || !allowed[r.purpose] {
			continue
		}
		if newest == nil || r.id > newest.id {
			newest = r
		}
	}
	if newest == nil {
		return "", repository.ErrOTPInvalid
	}
	newest.used = true
	if time.Now().UTC().After(newest.expiresAt) {
		return "", repository.ErrOTPExpired
	}
	return newest.purpose, nil
}

func (f *fakeOTPStore) DeleteForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*fakeOTP
	for _, r := range f.records {
		if r.userID != userID {
			kept = append(kept, r)
		}
	}
	f.records = kept
	return nil
}

// lastFor returns the newest record issued for a user, for assertions.
func (f *fakeOTPStore) lastFor(userID uint64) *fakeOTP {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *fakeOTP
	for _, r := range f.records {
		if r.userID == userID && (newest == nil || r.id > newest.id) {
			newest = r
		}
	}
	return newest
}

type fakeDeviceStore struct {
	mu      sync.Mutex
	nextID  uint64
	devices []*model.TrustedDevice
}

func (f *fakeDeviceStore) Lookup(_ context.Context, userID uint64, token string) (model.TrustedDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if d.UserID == userID && d.DeviceToken == token && !time.Now().UTC().After(d.ExpiresAt) {
			return *d, nil
		}
	}
	return model.TrustedDevice{}, sql.ErrNoRows
}

func (f *fakeDeviceStore) Touch(_ context.Context, deviceID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if d.ID == deviceID {
			d.LastUsed = time.Now().UTC()
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeDeviceStore) Upsert(_ context.Context, userID uint64, token, name string, ttlDays int) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	expires := time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour)
	for _, d := range f.devices {
		if d.UserID == userID && d.DeviceToken == token {
			d.DeviceName = name
			d.LastUsed = time.Now().UTC()
			d.ExpiresAt = expires
			return expires, nil
		}
	}
	f.nextID++
	f.devices = append(f.devices, &model.TrustedDevice{
		ID: f.nextID, UserID: userID, DeviceToken: token, DeviceName: name,
		LastUsed: time.Now().UTC(), ExpiresAt: expires, CreatedAt: time.Now().UTC(),
	})
	return expires, nil
}

func (f *fakeDeviceStore) ListByUser(_ context.Context, userID uint64) ([]model.TrustedDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TrustedDevice
	for _, d := range f.devices {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDeviceStore) Revoke(_ context.Context, userID, deviceID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.devices {
		if d.ID == deviceID && d.UserID == userID {
			f.devices = append(f.devices[:i], f.devices[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeDeviceStore) RevokeAll(_ context.Context, userID uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*model.TrustedDevice
	var n int64
	for _, d := range f.devices {
		if d.UserID == userID {
			n++
			continue
		}
		kept = append(kept, d)
	}
	f.devices = kept
	return n, nil
}

type sentMail struct {
	to, subject, body string
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentMail
	failErr error
}

func (f *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (f *fakeNotifier) last() *sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	m := f.sent[len(f.sent)-1]
	return &m
}

var errStoreDown = errors.New("store unavailable")
