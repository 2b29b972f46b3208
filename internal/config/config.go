package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                          string `mapstructure:"PORT"`
	DatabaseDriver                string `mapstructure:"DATABASE_DRIVER"`
	DatabasePath                  string `mapstructure:"DATABASE_PATH"`
	DiscordClientID               string `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	JWTSecret                     string `mapstructure:"JWT_SECRET"`
	FrontendURL                   string `mapstructure:"FRONTEND_URL"`
	EnableCORS                    bool   `mapstructure:"ENABLE_CORS"`
	RevealWindowSeconds           int    `mapstructure:"REVEAL_WINDOW_SECONDS"`
	RevealTickMillis              int    `mapstructure:"REVEAL_TICK_MILLIS"`
	XPPerCheckin                  int    `mapstructure:"XP_PER_CHECKIN"`
	PointsPerCheckin              int    `mapstructure:"POINTS_PER_CHECKIN"`
	TrailCompletionXP             int    `mapstructure:"TRAIL_COMPLETION_XP"`
	SeedCatalog                   bool   `mapstructure:"SEED_CATALOG"`
}

// RevealWindow is the time a revealed code stays on screen before it is consumed.
func (c *Config) RevealWindow() time.Duration {
	return time.Duration(c.RevealWindowSeconds) * time.Second
}

// RevealTick is the countdown callback interval.
func (c *Config) RevealTick() time.Duration {
	return time.Duration(c.RevealTickMillis) * time.Millisecond
}

func LoadConfig() *Config {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_PATH", "coffeepass.db")
	viper.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:8080/auth/discord/callback")
	viper.SetDefault("FRONTEND_URL", "http://127.0.0.1:4000/")
	viper.SetDefault("REVEAL_WINDOW_SECONDS", 120)
	viper.SetDefault("REVEAL_TICK_MILLIS", 1000)
	viper.SetDefault("XP_PER_CHECKIN", 50)
	viper.SetDefault("POINTS_PER_CHECKIN", 10)
	viper.SetDefault("TRAIL_COMPLETION_XP", 250)
	viper.SetDefault("SEED_CATALOG", true)

	viper.BindEnv("DATABASE_DRIVER")
	viper.BindEnv("DATABASE_PATH")
	viper.BindEnv("DISCORD_CLIENT_ID")
	viper.BindEnv("DISCORD_CLIENT_SECRET")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("FRONTEND_URL")
	viper.BindEnv("ENABLE_CORS")
	viper.BindEnv("REVEAL_WINDOW_SECONDS")
	viper.BindEnv("REVEAL_TICK_MILLIS")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
