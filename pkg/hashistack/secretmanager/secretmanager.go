package secretmanager

import (
	"os"

	vault "github.com/hashicorp/vault-client-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a Vault client configured from VAULT_ADDR / VAULT_TOKEN.
// Processes include it only when Enabled reports true.
var Module = fx.Module("secretmanager", fx.Provide(ProvideVault))

func Enabled() bool {
	return os.Getenv("VAULT_ADDR") != ""
}

func ProvideVault() (*vault.Client, error) {
	client, err := vault.New(
		vault.WithEnvironment(),
	)
	if err != nil {
		zap.L().Error("failed to create vault client", zap.Error(err))
		return nil, err
	}

	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		if err := client.SetToken(token); err != nil {
			return nil, err
		}
	}

	return client, nil
}
