// Package config resolves soltrace's runtime configuration from CLI
// flags, environment variables, and defaults, in that order of
// precedence: an explicit flag always wins over the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the union of every field either cmd/ binary reads. Each
// entry point consumes only the subset its own flags declare.
type Config struct {
	RPCURL         string
	WSURL          string
	DBURL          string
	IDLDir         string
	ProgramIDs     []string
	Commitment     rpc.CommitmentType
	ReconnectDelay time.Duration
	MaxReconnects  *int
	Limit          int
	BatchSize      int
	BatchDelay     time.Duration
	Concurrency    int
	MaxRetries     int
	MetricsAddr    string
	MetricsBackend string
	LogLevel       string
}

// envBindings maps each viper key soltrace reads to its environment
// variable.
var envBindings = map[string]string{
	"rpc-url":         "SOLANA_RPC_URL",
	"ws-url":          "SOLANA_WS_URL",
	"db-url":          "DB_URL",
	"idl-dir":         "IDL_DIR",
	"programs":        "PROGRAM_IDS",
	"commitment":      "COMMITMENT",
	"reconnect-delay": "RECONNECT_DELAY",
	"limit":           "LIMIT",
	"batch-size":      "BATCH_SIZE",
	"batch-delay":     "BATCH_DELAY",
	"metrics-addr":    "METRICS_ADDR",
	"metrics-backend": "METRICS_BACKEND",
	"log-level":       "LOG_LEVEL",
}

// NewViper builds a viper.Viper pre-bound to soltrace's environment
// variables. Each cmd/ binary still needs to call BindFlag for every
// flag it declares so that an explicit flag beats the environment.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// BindFlag binds one pflag into v under name, giving that flag
// priority over the environment variable (if any) bound to the same
// key.
func BindFlag(v *viper.Viper, flags *pflag.FlagSet, name string) error {
	flag := flags.Lookup(name)
	if flag == nil {
		return fmt.Errorf("config: no flag named %q", name)
	}
	return v.BindPFlag(name, flag)
}

// FromViper reads every field Config defines out of v. Commitment must
// be one of three levels, programs is CSV, and durations are seconds
// or milliseconds depending on the field.
func FromViper(v *viper.Viper) (*Config, error) {
	commitment, err := parseCommitment(v.GetString("commitment"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCURL:         v.GetString("rpc-url"),
		WSURL:          v.GetString("ws-url"),
		DBURL:          v.GetString("db-url"),
		IDLDir:         v.GetString("idl-dir"),
		ProgramIDs:     splitCSV(v.GetString("programs")),
		Commitment:     commitment,
		ReconnectDelay: time.Duration(v.GetInt("reconnect-delay")) * time.Second,
		Limit:          v.GetInt("limit"),
		BatchSize:      v.GetInt("batch-size"),
		BatchDelay:     time.Duration(v.GetInt("batch-delay")) * time.Millisecond,
		Concurrency:    v.GetInt("concurrency"),
		MaxRetries:     v.GetInt("max-retries"),
		MetricsAddr:    v.GetString("metrics-addr"),
		MetricsBackend: v.GetString("metrics-backend"),
		LogLevel:       v.GetString("log-level"),
	}

	// A bound pflag always reports a value to viper (its default, if
	// nothing else), so IsSet can't distinguish "flag omitted" from
	// "flag set to its default" here. The max-reconnects flag instead
	// defaults to -1, meaning unbounded; any non-negative value is a
	// real bound. The IsSet guard covers binaries that never declare
	// the flag at all, where GetInt would report a spurious 0.
	if v.IsSet("max-reconnects") {
		if n := v.GetInt("max-reconnects"); n >= 0 {
			cfg.MaxReconnects = &n
		}
	}

	return cfg, nil
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseCommitment(s string) (rpc.CommitmentType, error) {
	switch rpc.CommitmentType(s) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		return rpc.CommitmentType(s), nil
	case "":
		return rpc.CommitmentConfirmed, nil
	default:
		return "", fmt.Errorf("config: invalid commitment %q (want processed, confirmed, or finalized)", s)
	}
}
