package system

import (
	"errors"
	"fmt"

	"github.com/julianstephens/lifeplan/internal/auth"
	"github.com/julianstephens/lifeplan/internal/cli"
	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/keyring"
)

// authManager signs tokens with the configured secret, falling back to the OS keyring
func authManager(ctx *cli.Context) (*auth.Manager, error) {
	secret := ctx.Config.HTTP.JWTSecret
	if secret == "" {
		stored, err := keyring.GetJWTSecret()
		switch {
		case err == nil:
			secret = stored
		case errors.Is(err, keyring.ErrNotFound), errors.Is(err, keyring.ErrKeyringUnavailable):
			return nil, fmt.Errorf("no API signing secret configured: run 'lifeplan keyring secret' or set %s", constants.EnvJWTSecret)
		default:
			return nil, err
		}
	}
	return auth.NewManager(secret, ctx.Config.HTTP.JWTIssuer)
}
