package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	userID   string
	hash     []byte
	disabled bool
}

type pendingCode struct {
	phone  string
	code   string
	window *PhoneVerification
}

// MemoryProvider is an in-process Provider. Passwords are kept as bcrypt hashes.
// The zero value is ready to use.
type MemoryProvider struct {
	// CodeWindow is the phone code lifetime; zero selects DefaultCodeWindow.
	CodeWindow time.Duration
	// Now is the clock; nil selects time.Now.
	Now func() time.Time
	// SendCode delivers a phone code. Nil discards it.
	SendCode func(phone, code string)

	mu        sync.Mutex
	byEmail   map[string]*account
	byPhone   map[string]string
	federated map[string]string
	pending   map[string]pendingCode
}

// NewMemoryProvider returns an empty provider.
func NewMemoryProvider() *MemoryProvider {
	p := &MemoryProvider{}
	p.init()
	return p
}

// NewMemoryProviderFromConfig returns a provider holding cfg's users.
func NewMemoryProviderFromConfig(cfg Config) (*MemoryProvider, error) {
	p := NewMemoryProvider()
	for i, u := range cfg.Users {
		if err := p.AddUserHash(u.Email, []byte(u.PasswordHash), u.UserID); err != nil {
			return nil, fmt.Errorf("auth.users[%d]: %w", i, err)
		}
	}
	return p, nil
}

// init allocates the maps. Callers hold p.mu, except NewMemoryProvider.
func (p *MemoryProvider) init() {
	if p.byEmail == nil {
		p.byEmail = make(map[string]*account)
	}
	if p.byPhone == nil {
		p.byPhone = make(map[string]string)
	}
	if p.federated == nil {
		p.federated = make(map[string]string)
	}
	if p.pending == nil {
		p.pending = make(map[string]pendingCode)
	}
}

func (p *MemoryProvider) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func normalizeEmail(email string) (string, bool) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}

// AddUser registers an email account. An empty userID gets a generated one.
func (p *MemoryProvider) AddUser(email, password, userID string) (string, error) {
	addr, ok := normalizeEmail(email)
	if !ok {
		return "", MapError("auth/invalid-email", nil)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}
	if userID == "" {
		userID = uuid.NewString()
	}
	p.store(addr, hash, userID)
	return userID, nil
}

// AddUserHash registers an email account from an existing bcrypt hash.
func (p *MemoryProvider) AddUserHash(email string, hash []byte, userID string) error {
	addr, ok := normalizeEmail(email)
	if !ok {
		return MapError("auth/invalid-email", nil)
	}
	if _, err := bcrypt.Cost(hash); err != nil {
		return fmt.Errorf("password hash for %s: %w", addr, err)
	}
	if userID == "" {
		return fmt.Errorf("user id required for %s", addr)
	}
	p.store(addr, append([]byte(nil), hash...), userID)
	return nil
}

func (p *MemoryProvider) store(addr string, hash []byte, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	p.byEmail[addr] = &account{userID: userID, hash: hash}
}

// HashPassword returns the bcrypt hash stored for password.
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// Disable blocks further sign-ins for email.
func (p *MemoryProvider) Disable(email string) {
	addr, _ := normalizeEmail(email)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	if a, ok := p.byEmail[addr]; ok {
		a.disabled = true
	}
}

// AddFederatedToken accepts idToken from provider as userID.
func (p *MemoryProvider) AddFederatedToken(provider, idToken, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	p.federated[provider+"\x00"+idToken] = userID
}

// SignInWithEmail checks the password against the stored hash.
func (p *MemoryProvider) SignInWithEmail(ctx context.Context, email, password string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, MapError("", err)
	}
	addr, ok := normalizeEmail(email)
	if !ok {
		return Session{}, MapError("auth/invalid-email", nil)
	}
	p.mu.Lock()
	a, ok := p.byEmail[addr]
	p.mu.Unlock()
	if !ok {
		return Session{}, MapError("auth/user-not-found", nil)
	}
	if a.disabled {
		return Session{}, MapError("auth/user-disabled", nil)
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Session{}, MapError("auth/wrong-password", nil)
		}
		return Session{}, MapError("", err)
	}
	return Session{UserID: a.userID, Email: addr, Provider: "password", IssuedAt: p.now()}, nil
}

// RequestPhoneCode issues a six digit code for phone and returns its verification id.
func (p *MemoryProvider) RequestPhoneCode(ctx context.Context, phone string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", MapError("", err)
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", MapError("auth/invalid-phone-number", errors.New("phone number required"))
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", MapError("", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	id := uuid.NewString()
	p.mu.Lock()
	p.init()
	p.pending[id] = pendingCode{phone: phone, code: code, window: NewPhoneVerification(p.CodeWindow, p.now)}
	p.mu.Unlock()
	if p.SendCode != nil {
		p.SendCode(phone, code)
	}
	return id, nil
}

// VerifyPhoneCode exchanges a valid, unexpired code for a session. The
// verification id is consumed on success or expiry.
func (p *MemoryProvider) VerifyPhoneCode(ctx context.Context, verificationID, code string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, MapError("", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	pc, ok := p.pending[verificationID]
	if !ok {
		return Session{}, MapError("auth/invalid-verification-id", errors.New("unknown verification id"))
	}
	if pc.window.Expired() {
		delete(p.pending, verificationID)
		return Session{}, MapError("auth/code-expired", errors.New("verification code expired"))
	}
	if pc.code != strings.TrimSpace(code) {
		return Session{}, MapError("auth/invalid-verification-code", errors.New("verification code mismatch"))
	}
	delete(p.pending, verificationID)
	userID, ok := p.byPhone[pc.phone]
	if !ok {
		userID = uuid.NewString()
		p.byPhone[pc.phone] = userID
	}
	return Session{UserID: userID, Phone: pc.phone, Provider: "phone", IssuedAt: p.now()}, nil
}

// SignInWithFederated accepts tokens registered with AddFederatedToken.
func (p *MemoryProvider) SignInWithFederated(ctx context.Context, provider, idToken string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, MapError("", err)
	}
	p.mu.Lock()
	userID, ok := p.federated[provider+"\x00"+idToken]
	p.mu.Unlock()
	if !ok {
		return Session{}, MapError("auth/invalid-credential", errors.New("unrecognised federated token"))
	}
	return Session{UserID: userID, Provider: provider, IssuedAt: p.now()}, nil
}
