package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/plantcare/internal/auth"
	"github.com/listenupapp/plantcare/internal/config"
	"github.com/listenupapp/plantcare/internal/logger"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the authentication key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.Path)
	if err != nil {
		return nil, err
	}

	// Update config with the loaded key
	cfg.Auth.AccessTokenKey = key

	log.Info("Authentication key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(authKey, cfg.Auth.AccessTokenDuration)
}

// ProvideSessionService provides the mocked identity provider. The
// persisted session is restored by Bootstrap once listeners are wired.
func ProvideSessionService(i do.Injector) (*auth.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return auth.NewSessionService(storeHandle.Store, log.Component("session")), nil
}
