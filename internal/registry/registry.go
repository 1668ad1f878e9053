// Package registry holds the static token and lock-duration configuration
// offered by the staking dashboard.
package registry

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jack-landon/dapper-app/internal/config"
	"gopkg.in/yaml.v3"
)

// Token describes one stakeable asset and the vault that holds it.
type Token struct {
	Symbol       string  `yaml:"symbol" json:"symbol"`
	Name         string  `yaml:"name" json:"name"`
	Address      string  `yaml:"address" json:"address"`
	VaultAddress string  `yaml:"vault_address" json:"vaultAddress"`
	APY          float64 `yaml:"apy" json:"apy"`
	Decimals     int     `yaml:"decimals" json:"decimals"`
	Icon         string  `yaml:"icon" json:"icon"`
}

// Duration is one of the preset lock windows.
type Duration struct {
	Label      string  `yaml:"label" json:"label"`
	Days       int     `yaml:"days" json:"days"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
	Seconds    int64   `yaml:"seconds" json:"seconds"`
}

// Registry is the immutable token/duration configuration.
type Registry struct {
	Tokens    []Token    `yaml:"tokens"`
	Durations []Duration `yaml:"durations"`
}

// Default returns the built-in registry matching the deployed dashboard.
// Contract addresses come from the environment; a missing address leaves
// the token listed but unusable for writes.
func Default() *Registry {
	return &Registry{
		Tokens: []Token{
			{
				Symbol:       "MUSD",
				Name:         "MUSD",
				Address:      config.GetEnvOrDefault("MUSD_ADDRESS", ""),
				VaultAddress: config.GetEnvOrDefault("MUSD_VAULT_ADDRESS", ""),
				APY:          12,
				Decimals:     18,
				Icon:         "https://s2.coinmarketcap.com/static/img/coins/64x64/37163.png",
			},
			{
				Symbol:       "BTC",
				Name:         "Bitcoin",
				Address:      config.GetEnvOrDefault("BTC_ADDRESS", ""),
				VaultAddress: config.GetEnvOrDefault("BTC_VAULT_ADDRESS", ""),
				APY:          10,
				Decimals:     18,
				Icon:         "https://s2.coinmarketcap.com/static/img/coins/64x64/1.png",
			},
		},
		Durations: []Duration{
			{Label: "30 Days", Days: 30, Multiplier: 0.8, Seconds: 2592000},
			{Label: "90 Days", Days: 90, Multiplier: 1.0, Seconds: 7776000},
			{Label: "180 Days", Days: 180, Multiplier: 1.2, Seconds: 15552000},
			{Label: "365 Days", Days: 365, Multiplier: 1.5, Seconds: 31536000},
		},
	}
}

// LoadFile reads a registry from a YAML file. Tokens without an explicit
// decimals value fall back to 18.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var reg Registry
	if err := yaml.Unmarshal(raw, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if len(reg.Tokens) == 0 {
		return nil, fmt.Errorf("registry %s lists no tokens", path)
	}
	for i := range reg.Tokens {
		if reg.Tokens[i].Decimals == 0 {
			reg.Tokens[i].Decimals = 18
		}
	}
	for i := range reg.Durations {
		if reg.Durations[i].Seconds == 0 {
			reg.Durations[i].Seconds = int64(reg.Durations[i].Days) * 86400
		}
	}
	return &reg, nil
}

// Load reads the registry file at path, falling back to the built-in
// defaults when the file does not exist.
func Load(path string) (*Registry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFile(path)
}

// TokenByAddress looks up a token by its contract address, case-insensitively.
func (r *Registry) TokenByAddress(address string) (Token, bool) {
	for _, t := range r.Tokens {
		if strings.EqualFold(t.Address, address) {
			return t, true
		}
	}
	return Token{}, false
}

// TokenBySymbol looks up a token by its symbol, case-insensitively.
func (r *Registry) TokenBySymbol(symbol string) (Token, bool) {
	for _, t := range r.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return Token{}, false
}

// DecimalsFor returns the decimal precision for a token address,
// defaulting to 18 when the token is unknown.
func (r *Registry) DecimalsFor(address string) int {
	if t, ok := r.TokenByAddress(address); ok && t.Decimals > 0 {
		return t.Decimals
	}
	return 18
}

// DurationByLabel looks up a preset lock window by its label,
// case-insensitively.
func (r *Registry) DurationByLabel(label string) (Duration, bool) {
	for _, d := range r.Durations {
		if strings.EqualFold(d.Label, label) {
			return d, true
		}
	}
	return Duration{}, false
}

// MultiplierFor returns the yield multiplier of the preset matching the
// given lock seconds, 1.0 for free-form durations.
func (r *Registry) MultiplierFor(seconds int64) float64 {
	for _, d := range r.Durations {
		if d.Seconds == seconds && d.Multiplier > 0 {
			return d.Multiplier
		}
	}
	return 1.0
}

// CustomUnit is the unit of a free-form lock duration.
type CustomUnit string

const (
	UnitDays    CustomUnit = "days"
	UnitHours   CustomUnit = "hours"
	UnitMinutes CustomUnit = "minutes"
)

// CustomSeconds converts a free-form duration (value + unit) into seconds
// for the deposit call. Unknown units are treated as days, matching the
// dashboard's default.
func CustomSeconds(value float64, unit CustomUnit) int64 {
	if value <= 0 {
		return 0
	}
	switch unit {
	case UnitHours:
		return int64(value * 3600)
	case UnitMinutes:
		return int64(value * 60)
	default:
		return int64(value * 86400)
	}
}

// HumanizeLockDuration renders a lock duration in seconds as a compact
// phrase, dropping zero components ("90 days", "1 days 2 hours").
func HumanizeLockDuration(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}
	d := time.Duration(seconds) * time.Second

	days := int64(d.Hours()) / 24
	hours := int64(d.Hours()) % 24
	minutes := int64(d.Minutes()) % 60
	secs := int64(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d days", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d hours", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d minutes", minutes))
	}
	if secs > 0 {
		parts = append(parts, fmt.Sprintf("%d seconds", secs))
	}
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}
