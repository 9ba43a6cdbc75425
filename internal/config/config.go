package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"rinkcenter/internal/constants"
)

type Config struct {
	LeagueAPIBaseURL string
	LeagueAPIKey     string
	ActiveSeason     string
	DBPath           string
	ServerPort       string
	LogLevel         string
	PollInterval     time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		LeagueAPIBaseURL: getEnv("LEAGUE_API_URL", ""),
		LeagueAPIKey:     getEnv("LEAGUE_API_KEY", ""),
		ActiveSeason:     getEnv("ACTIVE_SEASON", ""),
		DBPath:           getEnv("DB_PATH", "rinkcenter.db"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		PollInterval:     constants.LivePollInterval,
	}

	if cfg.LeagueAPIBaseURL == "" {
		return nil, fmt.Errorf("LEAGUE_API_URL is required")
	}
	if cfg.ActiveSeason == "" {
		return nil, fmt.Errorf("ACTIVE_SEASON is required")
	}

	logger.Info().
		Str("league_api", cfg.LeagueAPIBaseURL).
		Str("active_season", cfg.ActiveSeason).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Dur("poll_interval", cfg.PollInterval).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
