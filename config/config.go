package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tendermint/lightnode/codec"
	rpcclient "github.com/tendermint/lightnode/rpc/jsonrpc/client"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatText is a format for uncolored text
	LogFormatText = "text"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"

	// DefaultLogLevel defines a default log level as INFO.
	DefaultLogLevel = "info"

	// MaxPerPage is the largest page a full node serves.
	MaxPerPage = 100
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
// NOTE: libs/cli must know to look in the config dir!
var (
	DefaultLightnodeDir = ".lightnode"
	defaultConfigDir    = "config"
	defaultDataDir      = "data"

	defaultConfigFileName   = "config.toml"
	defaultTrustedStateName = "trusted_state.json"

	defaultConfigFilePath   = filepath.Join(defaultConfigDir, defaultConfigFileName)
	defaultTrustedStatePath = filepath.Join(defaultDataDir, defaultTrustedStateName)
)

// Config defines the top level configuration for a light node
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	Light           *LightConfig           `mapstructure:"light"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration for a light node
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Light:           DefaultLightConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		Light:           TestLightConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	cfg.Light.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Light.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [light] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for a light node
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this node
	Moniker string `mapstructure:"moniker"`

	// Output level for logging
	LogLevel string `mapstructure:"log-level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log-format"`
}

// DefaultBaseConfig returns a default base configuration for a light node
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Moniker:   defaultMoniker,
		LogLevel:  DefaultLogLevel,
		LogFormat: LogFormatPlain,
	}
}

// TestBaseConfig returns a base configuration for testing a light node
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.Moniker = "test"
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatText, LogFormatJSON:
	default:
		return errors.New("unknown log format (must be 'plain', 'text' or 'json')")
	}
	return nil
}

//-----------------------------------------------------------------------------
// LightConfig

// LightConfig defines the configuration of the light client: where headers
// come from and how they are verified.
type LightConfig struct {
	RootDir string `mapstructure:"home"`

	// ID of the chain to follow
	ChainID string `mapstructure:"chain-id"`

	// RPC address of the full node headers are fetched from
	Primary string `mapstructure:"primary"`

	// Encoding of the chain: legacy | amino | proto
	WireFormat string `mapstructure:"wire-format"`

	// Path to the JSON file holding the trusted light block
	TrustedStateFile string `mapstructure:"trusted-state-file"`

	// How far in the future a header may be
	MaxClockDrift time.Duration `mapstructure:"max-clock-drift"`

	// How old the trusted header may be
	MaxAge time.Duration `mapstructure:"max-age"`

	// Check that validator addresses are derived from their keys
	StrictAddresses bool `mapstructure:"strict-addresses"`

	// Overwrite the trusted state file after every verified header
	SaveTrustedState bool `mapstructure:"save-trusted-state"`

	// Page size of validators queries
	PerPage int `mapstructure:"per-page"`
}

// DefaultLightConfig returns a default configuration for the light client
func DefaultLightConfig() *LightConfig {
	return &LightConfig{
		Primary:          "tcp://127.0.0.1:26657",
		WireFormat:       string(codec.VersionProto),
		TrustedStateFile: defaultTrustedStatePath,
		MaxClockDrift:    4 * time.Hour,
		MaxAge:           30 * 24 * time.Hour,
		StrictAddresses:  true,
		SaveTrustedState: true,
		PerPage:          MaxPerPage,
	}
}

// TestLightConfig returns a configuration for testing the light client
func TestLightConfig() *LightConfig {
	cfg := DefaultLightConfig()
	cfg.ChainID = "test-chain"
	return cfg
}

// TrustedStatePath returns the full path of the trusted state file
func (cfg *LightConfig) TrustedStatePath() string {
	return rootify(cfg.TrustedStateFile, cfg.RootDir)
}

// Codec returns the codec of the wire format.
func (cfg *LightConfig) Codec() (codec.Codec, error) {
	return codec.New(codec.Version(cfg.WireFormat))
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *LightConfig) ValidateBasic() error {
	if _, err := rpcclient.ParseRemote(cfg.Primary); err != nil {
		return fmt.Errorf("primary: %w", err)
	}
	if _, err := cfg.Codec(); err != nil {
		return fmt.Errorf("wire-format: %w", err)
	}
	if cfg.TrustedStateFile == "" {
		return errors.New("trusted-state-file can't be empty")
	}
	if cfg.MaxClockDrift < 0 {
		return errors.New("max-clock-drift can't be negative")
	}
	if cfg.MaxAge <= 0 {
		return errors.New("max-age must be positive")
	}
	if cfg.PerPage < 1 || cfg.PerPage > MaxPerPage {
		return fmt.Errorf("per-page must be in [1, %d], got %d", MaxPerPage, cfg.PerPage)
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	// Check out the documentation for the list of available metrics.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus-listen-addr"`

	// Maximum number of simultaneous connections.
	// If you want to accept a larger number than the default, make sure
	// you increase your OS limits.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max-open-connections"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		MaxOpenConnections:   3,
		Namespace:            "lightnode",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max-open-connections can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

//-----------------------------------------------------------------------------
// Moniker

var defaultMoniker = getDefaultMoniker()

// getDefaultMoniker returns a default moniker, which is the host name. If runtime
// fails to get the host name, "anonymous" will be returned.
func getDefaultMoniker() string {
	moniker, err := os.Hostname()
	if err != nil {
		moniker = "anonymous"
	}
	return moniker
}
