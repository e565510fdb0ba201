// Package config reads server settings from the environment, with a
// .env file loaded in development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr     string
	LogLevel string

	// Word list overrides; embedded defaults apply when empty.
	AnswersFile string
	AllowedFile string

	RoomCodeLength  int
	RoomIdleTimeout time.Duration
	SweepInterval   time.Duration

	// Per-room ceilings.
	MaxPlayers   int
	MaxGuesses   int
	MaxTimeLimit time.Duration
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:            getEnv("ADDR", ":8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		AnswersFile:     os.Getenv("WORDS_ANSWERS_FILE"),
		AllowedFile:     os.Getenv("WORDS_ALLOWED_FILE"),
		RoomCodeLength:  getEnvInt("ROOM_CODE_LENGTH", 6),
		RoomIdleTimeout: getEnvDuration("ROOM_IDLE_TIMEOUT", time.Hour),
		SweepInterval:   getEnvDuration("ROOM_SWEEP_INTERVAL", 5*time.Minute),
		MaxPlayers:      getEnvInt("MAX_PLAYERS", 8),
		MaxGuesses:      getEnvInt("MAX_GUESSES", 6),
		MaxTimeLimit:    getEnvDuration("MAX_TIME_LIMIT", 30*time.Minute),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
