package config

import "github.com/caarlos0/env/v11"

type VaultConfig struct {
	Secret string `env:"VAULT_SECRET,required,notEmpty"`
	Salt   string `env:"VAULT_SALT" envDefault:"lucky-agents-v1"`
}

func LoadVault() (VaultConfig, error) {
	var cfg VaultConfig
	err := env.Parse(&cfg)
	return cfg, err
}
