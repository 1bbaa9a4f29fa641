package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type SchedulerConfig struct {
	AutoPlayInterval time.Duration `env:"AUTO_PLAY_INTERVAL" envDefault:"30s"`
	JoinSafetyMargin time.Duration `env:"JOIN_SAFETY_MARGIN" envDefault:"10s"`

	ChatDelayMin time.Duration `env:"AUTO_CHAT_DELAY_MIN" envDefault:"30s"`
	ChatDelayMax time.Duration `env:"AUTO_CHAT_DELAY_MAX" envDefault:"90s"`

	DatingDelayMin time.Duration `env:"DATING_DELAY_MIN" envDefault:"2m"`
	DatingDelayMax time.Duration `env:"DATING_DELAY_MAX" envDefault:"5m"`

	PrivateChatDelayMin time.Duration `env:"PRIVATE_CHAT_DELAY_MIN" envDefault:"1m"`
	PrivateChatDelayMax time.Duration `env:"PRIVATE_CHAT_DELAY_MAX" envDefault:"3m"`
}

func LoadScheduler() (SchedulerConfig, error) {
	var cfg SchedulerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
