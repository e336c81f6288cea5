// Package config loads and validates the sampler configuration.
package config

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/trade-sampler/internal/artifact"
	"github.com/rxtech-lab/trade-sampler/internal/orchestrator"
	"github.com/rxtech-lab/trade-sampler/internal/stream"
	"github.com/rxtech-lab/trade-sampler/internal/version"
	"github.com/rxtech-lab/trade-sampler/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultEndpoint         = "wss://stream.bybit.com/realtime"
	DefaultSymbol           = "BTCUSD"
	DefaultHandshakeTimeout = 10 * time.Second
)

// Config is the sampler configuration. Every field can be set in the YAML file and most
// can be overridden from the command line.
type Config struct {
	Version          string        `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"title=Version,description=Tool version the file was written for"`
	LogLevel         string        `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"oneof=debug info warn error"`
	Endpoint         string        `yaml:"endpoint" json:"endpoint" jsonschema:"title=Endpoint,description=Websocket endpoint of the trade stream,default=wss://stream.bybit.com/realtime" validate:"required,url"`
	Symbol           string        `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol,description=Contract whose trades are sampled,default=BTCUSD" validate:"required,alphanum"`
	WindowSeconds    int           `yaml:"window_seconds" json:"window_seconds" jsonschema:"title=Window,description=Seconds each client collects trades,minimum=1" validate:"gt=0"`
	Clients          int           `yaml:"clients" json:"clients" jsonschema:"title=Clients,description=Number of concurrent clients,minimum=1,default=1" validate:"min=1"`
	BaseDelay        time.Duration `yaml:"base_delay" json:"base_delay" jsonschema:"title=Base Delay,description=Start offset of the first client (e.g. 1s),type=string" validate:"min=0"`
	StaggerStep      time.Duration `yaml:"stagger_step" json:"stagger_step" jsonschema:"title=Stagger Step,description=Extra start offset of each following client (e.g. 1s),type=string" validate:"min=0"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" json:"idle_timeout" jsonschema:"title=Idle Timeout,description=Longest single wait for a message (e.g. 1s),type=string" validate:"gt=0"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" json:"handshake_timeout" jsonschema:"title=Handshake Timeout,description=Websocket handshake timeout (e.g. 10s),type=string" validate:"gt=0"`
	DataPath         string        `yaml:"data_path" json:"data_path" jsonschema:"title=Data Path,description=Directory the client artifacts are written to,default=." validate:"required"`
	Writer           string        `yaml:"writer" json:"writer" jsonschema:"title=Writer,enum=json,enum=duckdb,default=json" validate:"oneof=json duckdb"`
	FailFast         bool          `yaml:"fail_fast" json:"fail_fast" jsonschema:"title=Fail Fast,description=Stop waiting for the other clients as soon as one fails"`
}

// Default returns the configuration used when no file is given. WindowSeconds has no default.
func Default() Config {
	return Config{
		Version:          "",
		LogLevel:         "info",
		Endpoint:         DefaultEndpoint,
		Symbol:           DefaultSymbol,
		WindowSeconds:    0,
		Clients:          1,
		BaseDelay:        orchestrator.DefaultBaseDelay,
		StaggerStep:      orchestrator.DefaultStaggerStep,
		IdleTimeout:      stream.DefaultIdleTimeout,
		HandshakeTimeout: DefaultHandshakeTimeout,
		DataPath:         ".",
		Writer:           string(artifact.FormatJSON),
		FailFast:         false,
	}
}

// Load reads a YAML file on top of the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return Parse(content)
}

// Parse decodes YAML content on top of the defaults.
func Parse(content []byte) (Config, error) {
	config := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	return config, nil
}

// Validate checks every field and that the file was written for a compatible tool version.
func (c Config) Validate(toolVersion string) error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if err := version.CheckConfigCompatibility(toolVersion, c.Version); err != nil {
		return errors.Wrap(errors.ErrCodeVersionMismatch, "incompatible config version", err)
	}

	return nil
}

// Window returns the sampling window of each client.
func (c Config) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// StreamConfig returns the per-client stream configuration.
func (c Config) StreamConfig() stream.Config {
	return stream.Config{
		Endpoint:    c.Endpoint,
		Symbol:      c.Symbol,
		Window:      c.Window(),
		IdleTimeout: c.IdleTimeout,
	}
}

// OrchestratorConfig returns the orchestration settings.
func (c Config) OrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		Clients:     c.Clients,
		BaseDelay:   c.BaseDelay,
		StaggerStep: c.StaggerStep,
		FailFast:    c.FailFast,
	}
}

// Schema returns the JSON schema of the configuration file.
func Schema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(&Config{})

	content, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(content), nil
}
