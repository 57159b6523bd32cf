package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	tmos "github.com/tendermint/lightnode/libs/os"
)

// defaultDirPerm is the default permissions used when creating directories.
const defaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate")
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

/****** these are for production settings ***********/

// EnsureRoot creates the root, config, and data directories if they don't
// exist.
func EnsureRoot(rootDir string) error {
	for _, dir := range []string{
		rootDir,
		filepath.Join(rootDir, defaultConfigDir),
		filepath.Join(rootDir, defaultDataDir),
	} {
		if err := tmos.EnsureDir(dir, defaultDirPerm); err != nil {
			return err
		}
	}
	return nil
}

// ConfigFilePath returns the path of config.toml under rootDir.
func ConfigFilePath(rootDir string) string {
	return filepath.Join(rootDir, defaultConfigFilePath)
}

// WriteConfigFile renders config using the template and writes it to
// config/config.toml under rootDir. This function is called by
// cmd/lightnode/commands/init.go
func WriteConfigFile(rootDir string, config *Config) error {
	return config.WriteToTemplate(ConfigFilePath(rootDir))
}

// WriteToTemplate writes the config to the exact file specified by
// the path, in the default toml template and does not mangle the path
// or filename at all.
func (cfg *Config) WriteToTemplate(path string) error {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return err
	}

	return os.WriteFile(path, buffer.Bytes(), 0644)
}

// ReadTOMLFile parses the config file at path on top of the defaults. The
// file is parsed as strict TOML, so syntax and type errors are reported with
// their line, and the values are then decoded the way viper decodes them for
// the commands. The root directory is left unset.
func ReadTOMLFile(path string) (*Config, error) {
	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	v := viper.New()
	if err := v.MergeConfigMap(raw); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return cfg, nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# NOTE: Any path below can be absolute (e.g. "/var/lightnode/data") or
# relative to the home directory (e.g. "data"). The home directory is
# "$HOME/.lightnode" by default, but could be changed via $LNHOME env variable
# or --home cmd flag.

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

# A custom human readable name for this node
moniker = "{{ .BaseConfig.Moniker }}"

# Output level for logging, including package level options
log-level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log-format = "{{ .BaseConfig.LogFormat }}"

#######################################################################
###                 Light Client Configuration Options              ###
#######################################################################
[light]

# ID of the chain to follow
chain-id = "{{ .Light.ChainID }}"

# RPC address of the full node to fetch headers from.
# tcp://, http://, https://, ws:// and wss:// are accepted; the port
# defaults to 26657.
primary = "{{ .Light.Primary }}"

# Encoding of the chain's headers, votes and validator sets:
# * legacy - go-wire, Tendermint v0.20 and earlier
# * amino  - Tendermint v0.21 to v0.33
# * proto  - Tendermint v0.34 and later
wire-format = "{{ .Light.WireFormat }}"

# Path to the JSON file holding the trusted light block: a signed header and
# the validator set that signed it, e.g. the genesis block.
trusted-state-file = "{{ js .Light.TrustedStateFile }}"

# Headers more than max-clock-drift in the future are rejected
max-clock-drift = "{{ .Light.MaxClockDrift }}"

# The trusted header may not be older than max-age. The node has to be
# re-initialised from a fresh trusted state once it is.
max-age = "{{ .Light.MaxAge }}"

# Check that every validator address is derived from its public key.
# Only disable this for chains whose addresses don't follow the derivation.
strict-addresses = {{ .Light.StrictAddresses }}

# Overwrite the trusted state file with every verified header, so that a
# restart resumes from the latest one.
save-trusted-state = {{ .Light.SaveTrustedState }}

# Page size of validators queries (max: 100)
per-page = {{ .Light.PerPage }}

#######################################################################
###                   Instrumentation Configuration Options         ###
#######################################################################
[instrumentation]

# When true, Prometheus metrics are served under /metrics on
# PrometheusListenAddr.
# Check out the documentation for the list of available metrics.
prometheus = {{ .Instrumentation.Prometheus }}

# Address to listen for Prometheus collector(s) connections
prometheus-listen-addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Maximum number of simultaneous connections.
# If you want to accept a larger number than the default, make sure
# you increase your OS limits.
# 0 - unlimited.
max-open-connections = {{ .Instrumentation.MaxOpenConnections }}

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`

/****** these are for test settings ***********/

// ResetTestRoot creates a fresh root for testName under dir, with a test
// config file.
func ResetTestRoot(dir, testName string) (*Config, error) {
	rootDir, err := os.MkdirTemp(dir, testName)
	if err != nil {
		return nil, err
	}
	if err := EnsureRoot(rootDir); err != nil {
		return nil, err
	}

	cfg := TestConfig().SetRoot(rootDir)
	if err := WriteConfigFile(rootDir, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
