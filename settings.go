package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// envSettings is the raw environment the bot reads.
type envSettings struct {
	Token          string `env:"DISCORD_TOKEN"`
	ApplicationID  string `env:"CLIENT_ID"`
	OwnerID        string `env:"OWNER_ID"`
	StateDirectory string `env:"STATE_DIRECTORY"`
	LogLevel       string `env:"LOG_LEVEL" default:"info"`
	LogFormat      string `env:"LOG_FORMAT" default:"text"`
	MetricsAddr    string `env:"METRICS_ADDR"`
	DefaultEmoji   string `env:"DEFAULT_EMOJI" default:"📁"`

	CreateConcurrency int `env:"CREATE_CONCURRENCY" default:"1"`
}

// botSettings holds the settings for the bot.
type botSettings struct {
	// Token is the bot token, without the "Bot " prefix.
	Token string
	// ApplicationID is the application to register commands for. If it is
	// not valid, the bot looks it up using its token.
	ApplicationID discord.AppID
	// OwnerID is the only user who may whitelist servers.
	OwnerID discord.UserID
	// StateDirectory is where the snapshot file is kept.
	StateDirectory string
	LogLevel       string
	LogFormat      string
	// MetricsAddr is the listen address for /metrics and health probes. Empty
	// disables the HTTP server.
	MetricsAddr  string
	DefaultEmoji string
	// CreateConcurrency is the number of create calls a bulk creation may
	// have in flight.
	CreateConcurrency int
}

func loadSettings() (botSettings, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables only.")
	}

	var raw envSettings
	if err := env.Load(&raw, nil); err != nil {
		return botSettings{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return parseSettings(raw)
}

func parseSettings(raw envSettings) (botSettings, error) {
	if raw.Token == "" {
		return botSettings{}, errors.New("DISCORD_TOKEN is required")
	}

	s := botSettings{
		Token:             raw.Token,
		StateDirectory:    raw.StateDirectory,
		LogLevel:          raw.LogLevel,
		LogFormat:         raw.LogFormat,
		MetricsAddr:       raw.MetricsAddr,
		DefaultEmoji:      raw.DefaultEmoji,
		CreateConcurrency: raw.CreateConcurrency,
	}

	if raw.ApplicationID != "" {
		id, err := discord.ParseSnowflake(raw.ApplicationID)
		if err != nil {
			return botSettings{}, fmt.Errorf("CLIENT_ID must be a snowflake: %w", err)
		}
		s.ApplicationID = discord.AppID(id)
	}

	if raw.OwnerID != "" {
		id, err := discord.ParseSnowflake(raw.OwnerID)
		if err != nil {
			return botSettings{}, fmt.Errorf("OWNER_ID must be a snowflake: %w", err)
		}
		s.OwnerID = discord.UserID(id)
	}

	if s.CreateConcurrency < 1 {
		return botSettings{}, fmt.Errorf("CREATE_CONCURRENCY must be at least 1, got %d", s.CreateConcurrency)
	}

	if s.StateDirectory == "" {
		userConfigDir, err := os.UserConfigDir()
		if err != nil {
			slog.Warn(
				"Bot could not get the user's config directory. It will use the current directory instead.",
				"err", err)
			userConfigDir = "."
		}
		s.StateDirectory = filepath.Join(userConfigDir, "zakrfa")
	}

	return s, nil
}
