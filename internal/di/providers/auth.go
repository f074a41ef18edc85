package providers

import (
	"github.com/samber/do/v2"

	"github.com/brickcomplete/brickcomplete-server/internal/auth"
	"github.com/brickcomplete/brickcomplete-server/internal/config"
	"github.com/brickcomplete/brickcomplete-server/internal/logger"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey returns the configured token key, or loads or generates one
// in the data directory.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.ResolveKey(cfg.Auth.TokenKey, cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	source := "data directory"
	if cfg.Auth.TokenKey != nil {
		source = "AUTH_TOKEN_KEY"
	}
	log.Info("Authentication key loaded", "source", source)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	authKey := do.MustInvoke[AuthKey](i)
	return auth.NewTokenService([]byte(authKey), 0)
}
