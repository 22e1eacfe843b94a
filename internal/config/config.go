// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"solana-mirror/internal/solana"
)

// Defaults for optional settings.
const (
	DefaultSlippageBps    = 500
	DefaultMaxBuySOL      = 0.02
	DefaultMirrorBuysOnly = true
	DefaultMetricsAddr    = ":9090"
)

// Config holds all runtime settings. Secrets stay out of String-able fields;
// the private key is parsed into the keypair and never retained as text.
type Config struct {
	RPCEndpoint  string
	WSEndpoint   string
	Wallet       *solana.Keypair
	TargetPubkey solana.Pubkey
	SlippageBps  uint16
	MaxBuySOL    float64

	// MirrorBuysOnly only changes a log line today; buys are always
	// mirrored and sells never are, regardless of this setting.
	MirrorBuysOnly bool

	PriorityFeeLamports uint64

	JupiterQuoteURL string
	JupiterSwapURL  string

	// PostgresDSN enables the durable trade journal when set.
	PostgresDSN string

	// MetricsAddr is the metrics/health listen address; empty disables it.
	MetricsAddr string
}

// FromEnv reads configuration from the environment, loading a .env file
// first if one exists. Missing required settings and unparseable values
// are errors.
func FromEnv() (*Config, error) {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		SlippageBps:    DefaultSlippageBps,
		MaxBuySOL:      DefaultMaxBuySOL,
		MirrorBuysOnly: DefaultMirrorBuysOnly,
		MetricsAddr:    DefaultMetricsAddr,
	}

	cfg.RPCEndpoint = os.Getenv("RPC_ENDPOINT")
	if cfg.RPCEndpoint == "" {
		return nil, fmt.Errorf("RPC_ENDPOINT is required")
	}
	cfg.WSEndpoint = os.Getenv("RPC_WEBSOCKET_ENDPOINT")
	if cfg.WSEndpoint == "" {
		return nil, fmt.Errorf("RPC_WEBSOCKET_ENDPOINT is required")
	}

	key := os.Getenv("PRIVATE_KEY")
	if key == "" {
		return nil, fmt.Errorf("PRIVATE_KEY is required")
	}
	wallet, err := solana.ParseKeypair(key)
	if err != nil {
		return nil, fmt.Errorf("PRIVATE_KEY: %w", err)
	}
	cfg.Wallet = wallet

	target := os.Getenv("TARGET_PUBKEY")
	if target == "" {
		return nil, fmt.Errorf("TARGET_PUBKEY is required")
	}
	cfg.TargetPubkey, err = solana.ParsePubkey(target)
	if err != nil {
		return nil, fmt.Errorf("TARGET_PUBKEY: %w", err)
	}
	// The target must be a wallet. Off-curve addresses are PDAs; they never
	// sign transactions, so subscribing to one would mirror nothing.
	if !cfg.TargetPubkey.IsOnCurve() {
		return nil, fmt.Errorf("TARGET_PUBKEY: %s is not an ed25519 wallet address", target)
	}

	if v := os.Getenv("SLIPPAGE_BPS"); v != "" {
		bps, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("SLIPPAGE_BPS: %w", err)
		}
		cfg.SlippageBps = uint16(bps)
	}
	if v := os.Getenv("MAX_BUY_SOL"); v != "" {
		sol, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("MAX_BUY_SOL: %w", err)
		}
		cfg.MaxBuySOL = sol
	}
	if v := os.Getenv("MIRROR_BUYS_ONLY"); v != "" {
		cfg.MirrorBuysOnly = parseBool(v, DefaultMirrorBuysOnly)
	}
	if v := os.Getenv("PRIORITY_FEE_LAMPORTS"); v != "" {
		fee, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("PRIORITY_FEE_LAMPORTS: %w", err)
		}
		cfg.PriorityFeeLamports = fee
	}

	cfg.JupiterQuoteURL = os.Getenv("JUPITER_QUOTE_URL")
	cfg.JupiterSwapURL = os.Getenv("JUPITER_SWAP_URL")
	cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}

	return cfg, nil
}

// parseBool accepts the usual truthy and falsy spellings; anything else
// falls back to the default rather than failing.
func parseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true
	case "false", "0", "no", "n":
		return false
	default:
		return def
	}
}
