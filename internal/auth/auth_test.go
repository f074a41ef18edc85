package auth

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{7}, keyLength)
}

func newTestService(t *testing.T, d time.Duration) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testKey(), d)
	require.NoError(t, err)
	return svc
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := newTestService(t, time.Hour)

	token, err := svc.GenerateAccessToken("user-1", "builder@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Owner())
	assert.Equal(t, "builder@example.com", claims.Email)
	assert.Equal(t, TokenIssuer, claims.Issuer)
	assert.Equal(t, TokenAudience, claims.Audience)
	assert.True(t, strings.HasPrefix(claims.TokenID, "tok-"))
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.Expiration, 5*time.Second)
}

func TestTokenService_RejectsWrongKey(t *testing.T) {
	token, err := newTestService(t, time.Hour).GenerateAccessToken("user-1", "")
	require.NoError(t, err)

	other, err := NewTokenService(bytes.Repeat([]byte{8}, keyLength), time.Hour)
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc := newTestService(t, time.Hour)
	key, err := paseto.V4SymmetricKeyFromBytes(testKey())
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	token := paseto.NewToken()
	token.SetIssuer(TokenIssuer)
	token.SetAudience(TokenAudience)
	token.SetSubject("user-1")
	token.SetIssuedAt(past)
	token.SetNotBefore(past)
	token.SetExpiration(past.Add(time.Minute))

	_, err = svc.VerifyAccessToken(token.V4Encrypt(key, nil))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsForeignAudience(t *testing.T) {
	svc := newTestService(t, time.Hour)
	key, err := paseto.V4SymmetricKeyFromBytes(testKey())
	require.NoError(t, err)

	now := time.Now()
	token := paseto.NewToken()
	token.SetIssuer(TokenIssuer)
	token.SetAudience("some-other-api")
	token.SetSubject("user-1")
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(time.Hour))

	_, err = svc.VerifyAccessToken(token.V4Encrypt(key, nil))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_SubjectFallback(t *testing.T) {
	svc := newTestService(t, time.Hour)
	key, err := paseto.V4SymmetricKeyFromBytes(testKey())
	require.NoError(t, err)

	now := time.Now()
	token := paseto.NewToken()
	token.SetIssuer(TokenIssuer)
	token.SetAudience(TokenAudience)
	token.SetSubject("user-from-sub")
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(time.Hour))

	claims, err := svc.VerifyAccessToken(token.V4Encrypt(key, nil))
	require.NoError(t, err)
	assert.Equal(t, "user-from-sub", claims.Owner())
}

func TestTokenService_Garbage(t *testing.T) {
	_, err := newTestService(t, time.Hour).VerifyAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenService_KeyLength(t *testing.T) {
	_, err := NewTokenService(make([]byte, 16), time.Hour)
	assert.Error(t, err)

	svc, err := NewTokenService(testKey(), 0)
	require.NoError(t, err)
	assert.Equal(t, defaultAccessTokenDuration, svc.AccessTokenDuration())
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	key, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, key, keyLength)

	info, err := os.Stat(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, key, again, "second start reuses the stored key")
}

func TestLoadOrGenerateKey_Invalid(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFileName), []byte("abcd"), 0o600))
	_, err := LoadOrGenerateKey(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFileName), []byte(strings.Repeat("zz", 32)), 0o600))
	_, err = LoadOrGenerateKey(dir)
	assert.Error(t, err)
}

func TestResolveKey(t *testing.T) {
	dir := t.TempDir()

	configured := testKey()
	got, err := ResolveKey(configured, dir)
	require.NoError(t, err)
	assert.Equal(t, configured, got)
	assert.NoFileExists(t, filepath.Join(dir, keyFileName))

	_, err = ResolveKey(make([]byte, 3), dir)
	assert.Error(t, err)

	generated, err := ResolveKey(nil, dir)
	require.NoError(t, err)
	stored, err := os.ReadFile(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(generated), string(stored))
}
