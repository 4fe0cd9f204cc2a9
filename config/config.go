package config

import (
	"fmt"
	"math/bits"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every configuration parameter of the application.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Beacon parameters. Rounds advance every BeaconPeriod starting at
	// BeaconGenesis; a round's value answers for BeaconWindowRounds rounds.
	BeaconGenesis      time.Time
	BeaconPeriod       time.Duration
	BeaconWindowRounds uint64
	BeaconSecret       [32]byte

	// Scheduler parameters.
	BracketSize          int
	GauntletBracketSize  int
	SelectionOffsetRound uint64
	ExecutionOffsetRound uint64
	CarryOverFinalists   bool
	GauntletLethal       bool
	DuelOffsetRounds     uint64
	DuelTimeout          time.Duration

	// RatingTables maps bracket size to rating points by elimination round
	// (round 1 first). Champion/runner-up awards sit outside the table. The
	// values are plain configuration; there is no derivation rule.
	RatingTables    map[int][]int
	ChampionPoints  int
	RunnerUpPoints  int
	StandInPoolSize int

	// Cloudflare R2 combat-log archive. Optional: when AccountID is empty
	// the archiver is disabled.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load reads configuration from environment variables, with an optional
// .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		RatingTables: map[int][]int{
			8:  {0, 10, 20},
			16: {0, 10, 20, 30},
			32: {0, 5, 10, 20, 30},
			64: {0, 5, 10, 15, 25, 35},
		},
		ChampionPoints:  50,
		RunnerUpPoints:  35,
		StandInPoolSize: 64,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	cfg.JWTSecretKey = os.Getenv("JWT_SECRET_KEY")
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	var err error
	if cfg.ServerPort, err = envInt("SERVER_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}

	genesis := os.Getenv("BEACON_GENESIS")
	if genesis == "" {
		genesis = "2025-01-01T00:00:00Z"
	}
	if cfg.BeaconGenesis, err = time.Parse(time.RFC3339, genesis); err != nil {
		return nil, fmt.Errorf("invalid BEACON_GENESIS: %w", err)
	}

	periodSec, err := envInt("BEACON_PERIOD_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	if periodSec <= 0 {
		return nil, fmt.Errorf("BEACON_PERIOD_SECONDS must be positive, got %d", periodSec)
	}
	cfg.BeaconPeriod = time.Duration(periodSec) * time.Second

	window, err := envInt("BEACON_WINDOW_ROUNDS", 256)
	if err != nil {
		return nil, err
	}
	if window <= 0 {
		return nil, fmt.Errorf("BEACON_WINDOW_ROUNDS must be positive, got %d", window)
	}
	cfg.BeaconWindowRounds = uint64(window)

	secret := os.Getenv("BEACON_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("BEACON_SECRET environment variable is not set")
	}
	copy(cfg.BeaconSecret[:], secret)

	if cfg.BracketSize, err = envInt("BRACKET_SIZE", 8); err != nil {
		return nil, err
	}
	if err := validateBracketSize("BRACKET_SIZE", cfg.BracketSize); err != nil {
		return nil, err
	}
	if cfg.GauntletBracketSize, err = envInt("GAUNTLET_BRACKET_SIZE", 8); err != nil {
		return nil, err
	}
	if err := validateBracketSize("GAUNTLET_BRACKET_SIZE", cfg.GauntletBracketSize); err != nil {
		return nil, err
	}

	selOffset, err := envInt("SELECTION_OFFSET_ROUNDS", 10)
	if err != nil {
		return nil, err
	}
	execOffset, err := envInt("EXECUTION_OFFSET_ROUNDS", 10)
	if err != nil {
		return nil, err
	}
	if selOffset <= 0 || execOffset <= 0 {
		return nil, fmt.Errorf("phase offsets must be positive")
	}
	cfg.SelectionOffsetRound = uint64(selOffset)
	cfg.ExecutionOffsetRound = uint64(execOffset)

	duelOffset, err := envInt("DUEL_OFFSET_ROUNDS", 5)
	if err != nil {
		return nil, err
	}
	cfg.DuelOffsetRounds = uint64(duelOffset)

	duelTimeoutSec, err := envInt("DUEL_TIMEOUT_SECONDS", 3600)
	if err != nil {
		return nil, err
	}
	cfg.DuelTimeout = time.Duration(duelTimeoutSec) * time.Second

	cfg.CarryOverFinalists = envBool("CARRY_OVER_FINALISTS", true)
	cfg.GauntletLethal = envBool("GAUNTLET_LETHAL", true)

	cfg.R2AccountID = os.Getenv("R2_ACCOUNT_ID")
	cfg.R2AccessKeyID = os.Getenv("R2_ACCESS_KEY_ID")
	cfg.R2SecretAccessKey = os.Getenv("R2_SECRET_ACCESS_KEY")
	cfg.R2BucketName = os.Getenv("R2_BUCKET_NAME")
	cfg.R2PublicBaseURL = os.Getenv("R2_PUBLIC_BASE_URL")

	return cfg, nil
}

func validateBracketSize(name string, n int) error {
	if n < 8 || n > 64 || bits.OnesCount(uint(n)) != 1 {
		return fmt.Errorf("%s must be a power of two between 8 and 64, got %d", name, n)
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func envBool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
