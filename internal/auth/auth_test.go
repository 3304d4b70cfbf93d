package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapCode(t *testing.T) {
	cases := map[string]Code{
		"auth/invalid-email":      CodeInvalidEmail,
		"auth/user-not-found":     CodeUserNotFound,
		"auth/wrong-password":     CodeWrongPassword,
		"auth/user-disabled":      CodeUserDisabled,
		"auth/too-many-requests": CodeUnknown,
		"":                       CodeUnknown,
	}
	for backend, want := range cases {
		assert.Equal(t, want, MapCode(backend), backend)
	}
}

func TestErrorIsMatchesCode(t *testing.T) {
	err := MapError("auth/wrong-password", errors.New("backend said no"))
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, CodeWrongPassword, CodeOf(err))
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
	assert.Contains(t, err.Error(), "wrong_password")
	assert.Equal(t, "The password is incorrect.", err.Code.Message())
}

func TestEmailSignIn(t *testing.T) {
	p := NewMemoryProvider()
	uid, err := p.AddUser("Carer@Example.com", "s3cret", "cg1")
	require.NoError(t, err)
	assert.Equal(t, "cg1", uid)
	ctx := context.Background()

	s, err := p.SignInWithEmail(ctx, "carer@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "cg1", s.UserID)

	_, err = p.SignInWithEmail(ctx, "not-an-email", "x")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = p.SignInWithEmail(ctx, "nobody@example.com", "x")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = p.SignInWithEmail(ctx, "carer@example.com", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	p.Disable("carer@example.com")
	_, err = p.SignInWithEmail(ctx, "carer@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestPhoneCodeFlow(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var sent string
	p := NewMemoryProvider()
	p.Now = func() time.Time { return now }
	p.SendCode = func(_, code string) { sent = code }
	ctx := context.Background()

	id, err := p.RequestPhoneCode(ctx, "+15550100")
	require.NoError(t, err)
	require.Len(t, sent, 6)

	_, err = p.VerifyPhoneCode(ctx, id, "not-it")
	assert.ErrorIs(t, err, ErrUnknown)

	s, err := p.VerifyPhoneCode(ctx, id, sent)
	require.NoError(t, err)
	assert.Equal(t, "+15550100", s.Phone)

	id2, err := p.RequestPhoneCode(ctx, "+15550100")
	require.NoError(t, err)
	s2, err := p.VerifyPhoneCode(ctx, id2, sent)
	require.NoError(t, err)
	assert.Equal(t, s.UserID, s2.UserID, "same phone keeps its user id")

	id3, err := p.RequestPhoneCode(ctx, "+15550100")
	require.NoError(t, err)
	now = now.Add(61 * time.Second)
	_, err = p.VerifyPhoneCode(ctx, id3, sent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestFederatedSignIn(t *testing.T) {
	p := NewMemoryProvider()
	p.AddFederatedToken("google.com", "tok", "cg7")
	s, err := p.SignInWithFederated(context.Background(), "google.com", "tok")
	require.NoError(t, err)
	assert.Equal(t, "cg7", s.UserID)
	_, err = p.SignInWithFederated(context.Background(), "apple.com", "tok")
	assert.Equal(t, CodeUnknown, CodeOf(err))
}

func TestPhoneVerificationWindow(t *testing.T) {
	now := time.Unix(0, 0)
	v := NewPhoneVerification(0, func() time.Time { return now })
	assert.Equal(t, DefaultCodeWindow, v.Remaining())
	now = now.Add(59 * time.Second)
	assert.False(t, v.Expired())
	now = now.Add(time.Second)
	assert.True(t, v.Expired())
	v.Reset()
	assert.False(t, v.Expired())
	assert.Equal(t, 60*time.Second, v.Remaining())
}

func TestZeroValueProvider(t *testing.T) {
	var p MemoryProvider
	ctx := context.Background()

	_, err := p.SignInWithEmail(ctx, "a@b.co", "pw")
	assert.ErrorIs(t, err, ErrUserNotFound)

	uid, err := p.AddUser("a@b.co", "pw", "")
	require.NoError(t, err)
	s, err := p.SignInWithEmail(ctx, "a@b.co", "pw")
	require.NoError(t, err)
	assert.Equal(t, uid, s.UserID)

	var fed MemoryProvider
	fed.AddFederatedToken("google", "tok", "cg9")
	s, err = fed.SignInWithFederated(ctx, "google", "tok")
	require.NoError(t, err)
	assert.Equal(t, "cg9", s.UserID)
	_, err = (&MemoryProvider{}).VerifyPhoneCode(ctx, "missing", "000000")
	assert.Equal(t, CodeUnknown, CodeOf(err))
	id, err := (&MemoryProvider{}).RequestPhoneCode(ctx, "+15550100")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestProviderFromConfig(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	p, err := NewMemoryProviderFromConfig(Config{Users: []User{{Email: "Carer@Example.com", PasswordHash: string(hash), UserID: "cg1"}}})
	require.NoError(t, err)

	s, err := p.SignInWithEmail(context.Background(), "carer@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "cg1", s.UserID)
	_, err = p.SignInWithEmail(context.Background(), "carer@example.com", "nope")
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = NewMemoryProviderFromConfig(Config{Users: []User{{Email: "x@example.com", PasswordHash: "plain", UserID: "cg2"}}})
	assert.ErrorContains(t, err, "auth.users[0]")
	_, err = NewMemoryProviderFromConfig(Config{Users: []User{{Email: "x@example.com", PasswordHash: string(hash)}}})
	assert.ErrorContains(t, err, "user id required")
	_, err = NewMemoryProviderFromConfig(Config{Users: []User{{Email: "bad", PasswordHash: string(hash), UserID: "cg3"}}})
	assert.ErrorIs(t, err, ErrInvalidEmail)
}
