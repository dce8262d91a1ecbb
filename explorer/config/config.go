package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Identifiers of the BOS native token on Cardano.
const (
	DefaultPolicyID = "1fa8a8909a66bb5c850c1fc3fe48903a5879ca2c1c9882e9055eef8d"
	DefaultAssetID  = DefaultPolicyID + "0014df10424f5320546f6b656e"
)

// SourceConfig describes one upstream API and its redundant deployments.
type SourceConfig struct {
	BaseURLs    []string      `yaml:"baseUrls"`    // Tried in declaration order
	Timeout     time.Duration `yaml:"timeout"`     // Per attempt
	Retries     int           `yaml:"retries"`     // Extra attempts on HTTP 429
	Backoff     time.Duration `yaml:"backoff"`     // Wait before a 429 retry
	MirrorDelay time.Duration `yaml:"mirrorDelay"` // Wait before moving to the next base
	UserAgent   string        `yaml:"userAgent"`
}

// AssetConfig identifies the single tracked token.
type AssetConfig struct {
	Symbol      string `yaml:"symbol"`
	PolicyID    string `yaml:"policyId"`
	AssetID     string `yaml:"assetId"` // PolicyID followed by the hex asset name
	Fingerprint string `yaml:"fingerprint"`
}

// GateConfig adds the trading pair to the spot exchange source.
type GateConfig struct {
	SourceConfig `yaml:",inline"`
	Pair         string `yaml:"pair"`
	Currency     string `yaml:"currency"`
}

// CoinGeckoConfig adds coin identifiers to the market aggregation source.
type CoinGeckoConfig struct {
	SourceConfig      `yaml:",inline"`
	CoinID            string            `yaml:"coinId"`
	ReferenceCoinID   string            `yaml:"referenceCoinId"`   // Chain-native coin shown next to the token
	OfficialContracts map[string]string `yaml:"officialContracts"` // chain -> contract, DEX listings filter
}

// LimitsConfig holds pagination and ranking sizes.
type LimitsConfig struct {
	AssetTxs          int `yaml:"assetTxs"`
	HolderSummary     int `yaml:"holderSummary"`
	HolderTable       int `yaml:"holderTable"`
	AddressTxs        int `yaml:"addressTxs"`
	TopHolders        int `yaml:"topHolders"`
	TableHolders      int `yaml:"tableHolders"`
	TransfersPageSize int `yaml:"transfersPageSize"`
	AddressTxsShown   int `yaml:"addressTxsShown"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port           string        `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	LiveInterval   time.Duration `yaml:"liveInterval"`
	MinInterval    time.Duration `yaml:"minInterval"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the whole explorer configuration, passed explicitly to every component.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Asset     AssetConfig     `yaml:"asset"`
	Koios     SourceConfig    `yaml:"koios"`
	Gate      GateConfig      `yaml:"gate"`
	CoinGecko CoinGeckoConfig `yaml:"coingecko"`
	Limits    LimitsConfig    `yaml:"limits"`
	Log       LogConfig       `yaml:"log"`
}

func defaultSource(base string, agent string) SourceConfig {
	return SourceConfig{
		BaseURLs:    []string{base},
		Timeout:     12 * time.Second,
		Retries:     2,
		Backoff:     500 * time.Millisecond,
		MirrorDelay: 150 * time.Millisecond,
		UserAgent:   agent,
	}
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"*"},
			LiveInterval:   15 * time.Second,
			MinInterval:    5 * time.Second,
		},
		Asset: AssetConfig{
			Symbol:      "BOS",
			PolicyID:    DefaultPolicyID,
			AssetID:     DefaultAssetID,
			Fingerprint: "asset1mfx4kv75jstyws0u0lpe70w7ny76lhsswampzd",
		},
		Koios: defaultSource("https://api.koios.rest/api/v1", "BOS-CNT-Explorer/koios"),
		Gate: GateConfig{
			SourceConfig: defaultSource("https://api.gateio.ws/api/v4", "BOS-CNT-Explorer/1.0"),
			Pair:         "BOS_USDT",
			Currency:     "BOS",
		},
		CoinGecko: CoinGeckoConfig{
			SourceConfig:    defaultSource("https://api.coingecko.com/api/v3", "BOS-CNT-Explorer/1.0"),
			CoinID:          "bitcoinos",
			ReferenceCoinID: "cardano",
			OfficialContracts: map[string]string{
				"eth": "0x13239c268beddd88ad0cb02050d3ff6a9d00de6d",
				"bsc": "0xae1e85c3665b70b682defd778e3dafdf09ed3b0f",
			},
		},
		Limits: LimitsConfig{
			AssetTxs:          5000,
			HolderSummary:     2000,
			HolderTable:       10000,
			AddressTxs:        500,
			TopHolders:        10,
			TableHolders:      50,
			TransfersPageSize: 25,
			AddressTxsShown:   50,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := splitList(getenv("CORS_ORIGINS")); len(v) > 0 {
		c.Server.AllowedOrigins = v
	}
	if v := splitList(getenv("KOIOS_URLS")); len(v) > 0 {
		c.Koios.BaseURLs = v
	}
	if v := splitList(getenv("GATE_URLS")); len(v) > 0 {
		c.Gate.BaseURLs = v
	}
	if v := splitList(getenv("COINGECKO_URLS")); len(v) > 0 {
		c.CoinGecko.BaseURLs = v
	}
	if v := getenv("POLICY_ID"); v != "" {
		c.Asset.PolicyID = strings.ToLower(v)
	}
	if v := getenv("ASSET_ID"); v != "" {
		c.Asset.AssetID = strings.ToLower(v)
	}
	if v := getenv("GATE_PAIR"); v != "" {
		c.Gate.Pair = v
	}
	if v := getenv("COINGECKO_COIN_ID"); v != "" {
		c.CoinGecko.CoinID = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("LOG_FILE"); v != "" {
		c.Log.File = v
	}
}

// splitList splits a comma-separated list, trimming blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the consistency of the configuration.
func Validate(c *Config) error {
	if c == nil {
		return errors.New("config object is nil")
	}
	if c.Asset.PolicyID == "" || c.Asset.AssetID == "" {
		return errors.New("asset policyId and assetId are required")
	}
	if !strings.HasPrefix(c.Asset.AssetID, c.Asset.PolicyID) {
		return fmt.Errorf("assetId '%s' does not start with policyId '%s'", c.Asset.AssetID, c.Asset.PolicyID)
	}

	sources := map[string]SourceConfig{
		"koios":     c.Koios,
		"gate":      c.Gate.SourceConfig,
		"coingecko": c.CoinGecko.SourceConfig,
	}
	for name, src := range sources {
		if err := validateSource(name, src); err != nil {
			return err
		}
	}

	if c.Gate.Pair == "" {
		return errors.New("gate pair is required")
	}
	if c.CoinGecko.CoinID == "" {
		return errors.New("coingecko coinId is required")
	}
	if c.Server.MinInterval <= 0 {
		return fmt.Errorf("server minInterval must be positive, got '%s'", c.Server.MinInterval)
	}
	if c.Server.LiveInterval < c.Server.MinInterval {
		return fmt.Errorf("server liveInterval %s is below minInterval %s", c.Server.LiveInterval, c.Server.MinInterval)
	}
	limits := map[string]int{
		"assetTxs":          c.Limits.AssetTxs,
		"holderSummary":     c.Limits.HolderSummary,
		"holderTable":       c.Limits.HolderTable,
		"addressTxs":        c.Limits.AddressTxs,
		"topHolders":        c.Limits.TopHolders,
		"tableHolders":      c.Limits.TableHolders,
		"transfersPageSize": c.Limits.TransfersPageSize,
		"addressTxsShown":   c.Limits.AddressTxsShown,
	}
	for name, n := range limits {
		if n <= 0 {
			return fmt.Errorf("limit '%s' must be positive, got %d", name, n)
		}
	}
	return nil
}

func validateSource(name string, src SourceConfig) error {
	if len(src.BaseURLs) == 0 {
		return fmt.Errorf("source '%s' has no baseUrls defined", name)
	}
	for _, base := range src.BaseURLs {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("source '%s' has invalid base url '%s'", name, base)
		}
	}
	if src.Timeout <= 0 {
		return fmt.Errorf("source '%s' has invalid timeout '%s'", name, src.Timeout)
	}
	if src.Retries < 0 {
		return fmt.Errorf("source '%s' has negative retries '%d'", name, src.Retries)
	}
	return nil
}
