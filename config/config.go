package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ReserveShortfallPolicy controls what happens when the reserve pool cannot
// cover an estimated gas fee.
type ReserveShortfallPolicy string

const (
	// ReserveShortfallWarn logs a warning and proceeds using general wallet
	// funds. Payout liveness over strict ledger accuracy.
	ReserveShortfallWarn ReserveShortfallPolicy = "warn"
	// ReserveShortfallBlock refuses to dispatch until the reserve is topped up.
	ReserveShortfallBlock ReserveShortfallPolicy = "block"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Chain gateway configuration
	ChainAPIURL   string
	ChainAPIKey   string
	WalletAddress string

	// Deposit settings
	MinDepositNative    decimal.Decimal
	MinDepositToken     decimal.Decimal
	DepositPollInterval time.Duration

	// Withdrawal settings
	MinWithdrawalNative decimal.Decimal
	MinWithdrawalToken  decimal.Decimal
	WithdrawalFeeNative decimal.Decimal
	WithdrawalFeeToken  decimal.Decimal
	// BaseDailyWithdrawalLimit is the floor of the smart daily limit; winnings
	// credited today can raise it per user.
	BaseDailyWithdrawalLimit decimal.Decimal

	// Payout settings
	PayoutInterval         time.Duration
	PayoutBatchSize        int
	PayoutMaxAttempts      int
	DailyPayoutCapNative   decimal.Decimal
	DailyPayoutCapToken    decimal.Decimal
	GasFeeEstimate         decimal.Decimal
	ReserveShortfallPolicy ReserveShortfallPolicy

	// Timezone defines local midnight for daily limits
	Timezone string

	// HTTP server
	ListenAddr string

	// Environment is "development", "production" or "test"
	Environment string
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		ChainAPIURL:   os.Getenv("CHAIN_API_URL"),
		ChainAPIKey:   os.Getenv("CHAIN_API_KEY"),
		WalletAddress: os.Getenv("WALLET_ADDRESS"),

		// Defaults
		MinDepositNative:         decimal.NewFromInt(1),
		MinDepositToken:          decimal.NewFromInt(1),
		DepositPollInterval:      30 * time.Second,
		MinWithdrawalNative:      decimal.NewFromInt(1),
		MinWithdrawalToken:       decimal.NewFromInt(1),
		WithdrawalFeeNative:      decimal.RequireFromString("0.05"),
		WithdrawalFeeToken:       decimal.RequireFromString("0.5"),
		BaseDailyWithdrawalLimit: decimal.NewFromInt(100),
		PayoutInterval:           1 * time.Minute,
		PayoutBatchSize:          10,
		PayoutMaxAttempts:        3,
		DailyPayoutCapNative:     decimal.NewFromInt(10000),
		DailyPayoutCapToken:      decimal.NewFromInt(50000),
		GasFeeEstimate:           decimal.RequireFromString("0.05"),
		ReserveShortfallPolicy:   ReserveShortfallWarn,
		Timezone:                 "UTC",
		ListenAddr:               ":8080",
		Environment:              os.Getenv("ENVIRONMENT"),
	}

	overrideDecimal := func(dst *decimal.Decimal, key string) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := decimal.NewFromString(v); err == nil {
				*dst = parsed
			}
		}
	}

	overrideDecimal(&config.MinDepositNative, "MIN_DEPOSIT_NATIVE")
	overrideDecimal(&config.MinDepositToken, "MIN_DEPOSIT_TOKEN")
	overrideDecimal(&config.MinWithdrawalNative, "MIN_WITHDRAWAL_NATIVE")
	overrideDecimal(&config.MinWithdrawalToken, "MIN_WITHDRAWAL_TOKEN")
	overrideDecimal(&config.WithdrawalFeeNative, "WITHDRAWAL_FEE_NATIVE")
	overrideDecimal(&config.WithdrawalFeeToken, "WITHDRAWAL_FEE_TOKEN")
	overrideDecimal(&config.BaseDailyWithdrawalLimit, "BASE_DAILY_WITHDRAWAL_LIMIT")
	overrideDecimal(&config.DailyPayoutCapNative, "DAILY_PAYOUT_CAP_NATIVE")
	overrideDecimal(&config.DailyPayoutCapToken, "DAILY_PAYOUT_CAP_TOKEN")
	overrideDecimal(&config.GasFeeEstimate, "GAS_FEE_ESTIMATE")

	if v := os.Getenv("PAYOUT_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			config.PayoutInterval = parsed
		}
	}
	if v := os.Getenv("DEPOSIT_POLL_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			config.DepositPollInterval = parsed
		}
	}
	if v := os.Getenv("PAYOUT_BATCH_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			config.PayoutBatchSize = parsed
		}
	}
	if v := os.Getenv("PAYOUT_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			config.PayoutMaxAttempts = parsed
		}
	}
	if v := os.Getenv("RESERVE_SHORTFALL_POLICY"); v != "" {
		switch ReserveShortfallPolicy(v) {
		case ReserveShortfallWarn, ReserveShortfallBlock:
			config.ReserveShortfallPolicy = ReserveShortfallPolicy(v)
		default:
			return nil, fmt.Errorf("invalid RESERVE_SHORTFALL_POLICY: %q", v)
		}
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		if _, err := time.LoadLocation(v); err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
		}
		config.Timezone = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		config.ListenAddr = v
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.ChainAPIURL == "" {
			return nil, fmt.Errorf("CHAIN_API_URL is required")
		}
		if config.WalletAddress == "" {
			return nil, fmt.Errorf("WALLET_ADDRESS is required")
		}
	}

	return config, nil
}

// Location returns the configured timezone for daily limit accounting
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MinDeposit returns the minimum accepted deposit for a currency
func (c *Config) MinDeposit(currency string) decimal.Decimal {
	if currency == "token" {
		return c.MinDepositToken
	}
	return c.MinDepositNative
}
