package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type AuthUser struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

type Config struct {
	Mode       string              `mapstructure:"mode"`
	Port       int                 `mapstructure:"port"`
	ReadLimit  int64               `mapstructure:"read_limit"`
	SendBuffer int                 `mapstructure:"send_buffer"`
	PingPeriod time.Duration       `mapstructure:"ping_period"`
	Secret     string              `mapstructure:"secret"`
	UploadDir  string              `mapstructure:"upload_dir"`
	AuthTokens map[string]AuthUser `mapstructure:"auth_tokens"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("send_buffer", 32)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("upload_dir", "./uploads")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
