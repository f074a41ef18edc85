package auth

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/brickcomplete/brickcomplete-server/internal/id"
)

const (
	// TokenIssuer is the identity service that mints access tokens.
	TokenIssuer = "brickcomplete-identity"
	// TokenAudience is this API.
	TokenAudience = "brickcomplete-api"

	defaultAccessTokenDuration = 15 * time.Minute
)

// ErrInvalidToken is returned for tokens that fail decryption or any claim rule.
var ErrInvalidToken = errors.New("invalid token")

// TokenService handles PASETO token verification, and generation for local tooling and tests.
type TokenService struct {
	symmetricKey        paseto.V4SymmetricKey
	accessTokenDuration time.Duration
}

// NewTokenService creates a token service from a 32-byte symmetric key.
func NewTokenService(key []byte, accessDuration time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	if accessDuration <= 0 {
		accessDuration = defaultAccessTokenDuration
	}

	return &TokenService{
		symmetricKey:        symmetricKey,
		accessTokenDuration: accessDuration,
	}, nil
}

// GenerateAccessToken creates a PASETO v4.local access token for a user,
// in the same shape the identity service issues.
func (s *TokenService) GenerateAccessToken(userID, email string) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuer(TokenIssuer)
	token.SetSubject(userID)
	token.SetAudience(TokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.accessTokenDuration))

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("user_id", userID)
	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("email", email)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyAccessToken decrypts a token and checks issuer, audience and validity window.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(TokenAudience))
	parser.AddRule(paseto.IssuedBy(TokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(time.Now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.Owner() == "" {
		return nil, fmt.Errorf("%w: no user", ErrInvalidToken)
	}

	return &claims, nil
}

// AccessTokenDuration returns the lifetime of generated access tokens.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessTokenDuration
}
