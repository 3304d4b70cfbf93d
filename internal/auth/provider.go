// Package auth defines the caregiver sign-in contract, the closed error
// taxonomy shown to users, and an in-process provider.
package auth

import (
	"context"
	"sync"
	"time"
)

// Session identifies a signed-in caregiver. UserID partitions documents and
// storage paths.
type Session struct {
	UserID   string
	Email    string
	Phone    string
	Provider string
	IssuedAt time.Time
}

// Provider signs caregivers in.
type Provider interface {
	SignInWithEmail(ctx context.Context, email, password string) (Session, error)
	RequestPhoneCode(ctx context.Context, phone string) (verificationID string, err error)
	VerifyPhoneCode(ctx context.Context, verificationID, code string) (Session, error)
	SignInWithFederated(ctx context.Context, provider, idToken string) (Session, error)
}

// Config lists the accounts known to a MemoryProvider.
type Config struct {
	Users []User `yaml:"users"`
}

// User is a configured email account. PasswordHash is a bcrypt hash and
// UserID becomes the caregiver id of the session.
type User struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
	UserID       string `yaml:"user_id"`
}

// DefaultCodeWindow is how long a phone code stays valid.
const DefaultCodeWindow = 60 * time.Second

// PhoneVerification tracks the validity window of a sent phone code.
type PhoneVerification struct {
	Window time.Duration
	Now    func() time.Time

	mu     sync.Mutex
	sentAt time.Time
}

// NewPhoneVerification returns a verification window starting now.
func NewPhoneVerification(window time.Duration, now func() time.Time) *PhoneVerification {
	if window <= 0 {
		window = DefaultCodeWindow
	}
	if now == nil {
		now = time.Now
	}
	v := &PhoneVerification{Window: window, Now: now}
	v.Reset()
	return v
}

// Reset restarts the window, as when a new code is sent.
func (v *PhoneVerification) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sentAt = v.Now()
}

// Remaining returns the time left before the code expires.
func (v *PhoneVerification) Remaining() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	left := v.Window - v.Now().Sub(v.sentAt)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the window has elapsed.
func (v *PhoneVerification) Expired() bool { return v.Remaining() == 0 }
