package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "JSONSYNTH"

type Generate struct {
	Seed            uint64 `yaml:"seed,omitempty" mapstructure:"seed" jsonschema:"description=Seed for repeatable generation. 0 draws a random seed for every run."`
	StrictHints     bool   `yaml:"strict_hints,omitempty" mapstructure:"strict_hints" jsonschema:"description=Reject unrecognized hints as malformed skeletons instead of generating a generic value."`
	MaxRefDepth     int    `yaml:"max_ref_depth,omitempty" mapstructure:"max_ref_depth" jsonschema:"description=How many schema references one branch may follow when expanding a swagger schema. Defaults to 3.,default=3"`
	MaxItemsDefault int    `yaml:"max_items_default,omitempty" mapstructure:"max_items_default" jsonschema:"description=Spread added to minItems when only a lower item bound is given. Defaults to 4.,default=4"`
	AutoMatch       bool   `yaml:"auto_match,omitempty" mapstructure:"auto_match" jsonschema:"description=Bind an unbound root object to the swagger schema that shares most of its keys."`
}

type Detection struct {
	Detectors     []string `yaml:"detectors,omitempty" mapstructure:"detectors" jsonschema:"description=Detection rules to enable by name. all enables every rule.,default=all"`
	MinConfidence float64  `yaml:"min_confidence,omitempty" mapstructure:"min_confidence" jsonschema:"description=Findings below this confidence are dropped from reports. Between 0 and 1."`
}

type Anonymize struct {
	Consistent    bool     `yaml:"consistent,omitempty" mapstructure:"consistent" jsonschema:"description=Replace identical values of the same field type with the same substitute within one document."`
	RedactionMask string   `yaml:"redaction_mask,omitempty" mapstructure:"redaction_mask" jsonschema:"description=Constant written in place of values no strategy can replace.,default=[REDACTED]"`
	MaskTypes     []string `yaml:"mask_types,omitempty" mapstructure:"mask_types" jsonschema:"description=Field types that are always redacted with the mask instead of being replaced."`
}

type Logging struct {
	Level  string `yaml:"level,omitempty" mapstructure:"level" jsonschema:"description=Log level on stderr. One of debug or info or warn or error.,default=warn"`
	Format string `yaml:"format,omitempty" mapstructure:"format" jsonschema:"description=Log encoding. console or json.,default=console"`
}

type Config struct {
	Generate  Generate  `yaml:"generate,omitempty" mapstructure:"generate" jsonschema:"description=Data generation settings."`
	Detection Detection `yaml:"detection,omitempty" mapstructure:"detection" jsonschema:"description=Sensitive field detection settings."`
	Anonymize Anonymize `yaml:"anonymize,omitempty" mapstructure:"anonymize" jsonschema:"description=Anonymization settings."`
	Logging   Logging   `yaml:"logging,omitempty" mapstructure:"logging" jsonschema:"description=Diagnostic logging on stderr."`
}

// FieldTypes lists the field types detection can report.
var FieldTypes = []string{"email", "phone", "name", "address", "ssn", "credit_card", "free_text", "other"}

// Defaults returns the configuration used when no file or environment
// variable overrides a value.
func Defaults() *Config {
	return &Config{
		Generate: Generate{
			MaxRefDepth:     3,
			MaxItemsDefault: 4,
		},
		Detection: Detection{
			Detectors: []string{"all"},
		},
		Anonymize: Anonymize{
			RedactionMask: "[REDACTED]",
		},
		Logging: Logging{
			Level:  "warn",
			Format: "console",
		},
	}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("generate.seed", cfg.Generate.Seed)
	v.SetDefault("generate.strict_hints", cfg.Generate.StrictHints)
	v.SetDefault("generate.max_ref_depth", cfg.Generate.MaxRefDepth)
	v.SetDefault("generate.max_items_default", cfg.Generate.MaxItemsDefault)
	v.SetDefault("generate.auto_match", cfg.Generate.AutoMatch)
	v.SetDefault("detection.detectors", cfg.Detection.Detectors)
	v.SetDefault("detection.min_confidence", cfg.Detection.MinConfidence)
	v.SetDefault("anonymize.consistent", cfg.Anonymize.Consistent)
	v.SetDefault("anonymize.redaction_mask", cfg.Anonymize.RedactionMask)
	v.SetDefault("anonymize.mask_types", cfg.Anonymize.MaskTypes)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

// Load reads the configuration. An explicit path must exist; without one,
// jsonsynth.yaml is looked up in the working directory and in
// $HOME/.jsonsynth, and a missing file means defaults. JSONSYNTH_*
// environment variables override both (JSONSYNTH_GENERATE_SEED=7).
func Load(path string) (*Config, error) {
	cfg := Defaults()

	v := viper.New()
	setDefaults(v, cfg)
	v.SetConfigName("jsonsynth")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.jsonsynth")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks value ranges and names. Flags applied after Load go
// through it again.
func (c *Config) Validate() error {
	if c.Generate.MaxRefDepth < 1 {
		return fmt.Errorf("generate.max_ref_depth must be at least 1, got %d", c.Generate.MaxRefDepth)
	}
	if c.Generate.MaxItemsDefault < 0 {
		return fmt.Errorf("generate.max_items_default must not be negative, got %d", c.Generate.MaxItemsDefault)
	}

	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection.min_confidence must be between 0 and 1, got %g", c.Detection.MinConfidence)
	}
	if len(c.Detection.Detectors) == 0 {
		return fmt.Errorf("detection.detectors must name at least one detector")
	}

	if c.Anonymize.RedactionMask == "" {
		return fmt.Errorf("anonymize.redaction_mask must not be empty")
	}
	for _, t := range c.Anonymize.MaskTypes {
		if !isFieldType(t) {
			return fmt.Errorf("anonymize.mask_types: unknown field type %q (supported: %s)", t, strings.Join(FieldTypes, ", "))
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logging.Format)
	}

	return nil
}

// NormalizeFieldType lowercases a field type name and accepts "-" for "_".
func NormalizeFieldType(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

func isFieldType(name string) bool {
	name = NormalizeFieldType(name)
	for _, t := range FieldTypes {
		if t == name {
			return true
		}
	}
	return false
}
