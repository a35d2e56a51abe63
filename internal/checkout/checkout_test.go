package checkout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/conveyor/internal/config"
)

func TestClassifyCloneError(t *testing.T) {
	cases := []struct {
		raw  string
		want any
	}{
		{"authentication required", &AuthError{}},
		{"invalid username or password", &AuthError{}},
		{"repository does not exist", &NotFoundError{}},
		{"unsupported protocol scheme", &UnsupportedProtocolError{}},
		{"rate limit exceeded", &RateLimitError{}},
	}
	for _, c := range cases {
		err := classifyCloneError("https://example.com/repo.git", errors.New(c.raw))
		switch c.want.(type) {
		case *AuthError:
			var target *AuthError
			assert.True(t, errors.As(err, &target), c.raw)
		case *NotFoundError:
			var target *NotFoundError
			assert.True(t, errors.As(err, &target), c.raw)
		case *UnsupportedProtocolError:
			var target *UnsupportedProtocolError
			assert.True(t, errors.As(err, &target), c.raw)
		case *RateLimitError:
			var target *RateLimitError
			assert.True(t, errors.As(err, &target), c.raw)
		}
	}

	plain := errors.New("connection reset by peer")
	assert.Equal(t, plain, classifyCloneError("u", plain))
	assert.NoError(t, classifyCloneError("u", nil))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, isPermanent(&AuthError{Op: "clone", Err: errors.New("x")}))
	assert.True(t, isPermanent(&NotFoundError{Op: "clone", Err: errors.New("x")}))
	assert.True(t, isPermanent(&UnsupportedProtocolError{Op: "clone", Err: errors.New("x")}))
	assert.False(t, isPermanent(&RateLimitError{Op: "clone", Err: errors.New("x")}))
	assert.False(t, isPermanent(errors.New("connection reset")))
}

func TestBuildAuth(t *testing.T) {
	auth, err := buildAuth(nil)
	require.NoError(t, err)
	assert.Nil(t, auth)

	_, err = buildAuth(&config.AuthConfig{Type: "token"})
	assert.Error(t, err, "token auth without token")

	got, err := buildAuth(&config.AuthConfig{Type: "token", Token: "secret"})
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = buildAuth(&config.AuthConfig{Type: "basic", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.NotNil(t, got)

	_, err = buildAuth(&config.AuthConfig{Type: "basic"})
	assert.Error(t, err, "basic auth without username")

	_, err = buildAuth(&config.AuthConfig{Type: "ssh"})
	assert.Error(t, err, "ssh auth without key path")

	_, err = buildAuth(&config.AuthConfig{Type: "kerberos"})
	assert.Error(t, err, "unknown auth type")
}

func TestCheckoutRequiresURL(t *testing.T) {
	c := NewClient(config.CheckoutConfig{})
	err := c.Checkout(t.Context(), Request{Dest: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}
