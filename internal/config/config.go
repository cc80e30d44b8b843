// internal/config/config.go
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	BaseURL  string `mapstructure:"base_url"`
	Addr     string `mapstructure:"addr"`
	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`
	Runtime struct {
		URL     string        `mapstructure:"url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"runtime"`
	Google struct {
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"google"`
	Cookies struct {
		Secure bool `mapstructure:"secure"`
	} `mapstructure:"cookies"`
	Frontend struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"frontend"`
}

func Load() Config {
	viper.SetDefault("addr", "127.0.0.1:8080")
	viper.SetDefault("runtime.url", "http://localhost:5000")
	viper.SetDefault("runtime.timeout", 10*time.Second)
	viper.SetDefault("cookies.secure", true)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	_ = viper.ReadInConfig()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// explicit bindings
	_ = viper.BindEnv("base_url", "BASE_URL")
	_ = viper.BindEnv("addr", "ADDR")
	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("runtime.url", "RUNTIME_URL")
	_ = viper.BindEnv("google.client_id", "GOOGLE_CLIENT_ID")
	_ = viper.BindEnv("google.client_secret", "GOOGLE_CLIENT_SECRET")
	_ = viper.BindEnv("cookies.secure", "SECURE_COOKIES")
	_ = viper.BindEnv("frontend.url", "FRONTEND_URL")

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		panic("config error: " + err.Error())
	}
	if c.BaseURL == "" {
		panic("config error: base_url/BASE_URL required")
	}
	if c.Frontend.URL == "" {
		c.Frontend.URL = c.BaseURL
	}
	return c
}

// RedirectURI is the fixed OAuth callback registered with the provider.
func (c Config) RedirectURI() string {
	return strings.TrimRight(c.BaseURL, "/") + "/calendar/callback"
}
