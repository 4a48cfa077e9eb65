package docmerge

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/render"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// DelimiterConfig holds the command delimiters
type DelimiterConfig struct {
	Open  string `yaml:"open" validate:"required"`
	Close string `yaml:"close" validate:"required"`
}

// Config contains all configuration options for the docmerge engine
type Config struct {
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error off"`
	// Delimiters surround template commands
	Delimiters DelimiterConfig `yaml:"delimiters"`
	// RunTextTag is the only element allowed to hold text directly
	RunTextTag string `yaml:"run_text_tag" validate:"required"`
	// RemovableTags are block elements dropped when they only held commands
	RemovableTags []string `yaml:"removable_tags" validate:"dive,required"`
	// KeepTags are property and marker elements kept when a loop marker's
	// block is cut, and ignored when deciding whether a block is empty
	KeepTags []string `yaml:"keep_tags" validate:"dive,required"`
	// RequiredChildren maps a container tag to a child tag it must keep
	RequiredChildren map[string]string `yaml:"required_children" validate:"dive,keys,required,endkeys,required"`
	// ProcessLineBreaks turns newlines in resolved values into LineBreakTag elements
	ProcessLineBreaks bool `yaml:"process_line_breaks"`
	// LineBreakTag is inserted between lines of multi-line values
	LineBreakTag string `yaml:"line_break_tag" validate:"required_if=ProcessLineBreaks true"`
	// NormalizeUnicode converts resolved text to NFC
	NormalizeUnicode bool `yaml:"normalize_unicode"`
	// MaxLoopDepth limits how deeply loops and conditionals may nest
	MaxLoopDepth int `yaml:"max_loop_depth" validate:"min=1"`
	// FailFast stops at the first query error; otherwise all query errors
	// are collected and returned together
	FailFast bool `yaml:"fail_fast"`
	// Minify compacts serialized XML output
	Minify bool `yaml:"minify"`
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once

	validate     *validator.Validate
	validateOnce sync.Once
)

func init() {
	// Initialize global config from environment on first use
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration for WordprocessingML
func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "off",
		Delimiters:        DelimiterConfig{Open: render.DefaultDelimiters.Open, Close: render.DefaultDelimiters.Close},
		RunTextTag:        tree.RunTextTag,
		RemovableTags:     []string{"w:p", "w:tr", "w:r"},
		KeepTags: []string{
			"w:pPr", "w:rPr", "w:trPr", "w:tcPr", "w:tblPr", "w:tblGrid", "w:sectPr",
			"w:proofErr", "w:bookmarkStart", "w:bookmarkEnd", "w:lastRenderedPageBreak",
		},
		RequiredChildren:  map[string]string{"w:tc": "w:p"},
		ProcessLineBreaks: true,
		LineBreakTag:      "w:br",
		NormalizeUnicode:  false,
		MaxLoopDepth:      100,
		FailFast:          true,
		Minify:            false,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	// DOCMERGE_LOG_LEVEL
	if val := os.Getenv("DOCMERGE_LOG_LEVEL"); val != "" {
		config.LogLevel = strings.ToLower(val)
	}

	// DOCMERGE_DELIMITERS, e.g. "{{ }}" or "+++ +++"
	if val := os.Getenv("DOCMERGE_DELIMITERS"); val != "" {
		if parts := strings.Fields(val); len(parts) == 2 {
			config.Delimiters = DelimiterConfig{Open: parts[0], Close: parts[1]}
		}
	}

	// DOCMERGE_RUN_TEXT_TAG
	if val := os.Getenv("DOCMERGE_RUN_TEXT_TAG"); val != "" {
		config.RunTextTag = val
	}

	// DOCMERGE_PROCESS_LINE_BREAKS
	if val := os.Getenv("DOCMERGE_PROCESS_LINE_BREAKS"); val != "" {
		config.ProcessLineBreaks = parseBool(val)
	}

	// DOCMERGE_NORMALIZE_UNICODE
	if val := os.Getenv("DOCMERGE_NORMALIZE_UNICODE"); val != "" {
		config.NormalizeUnicode = parseBool(val)
	}

	// DOCMERGE_MAX_LOOP_DEPTH
	if val := os.Getenv("DOCMERGE_MAX_LOOP_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			config.MaxLoopDepth = depth
		}
	}

	return config
}

// LoadConfigFile reads a YAML configuration file. Keys missing from the file
// keep their default values.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration on top of the defaults and
// validates the result
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	config := *overrides

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.Delimiters.Open == "" || config.Delimiters.Close == "" {
		config.Delimiters = defaults.Delimiters
	}
	if config.RunTextTag == "" {
		config.RunTextTag = defaults.RunTextTag
	}
	if config.RemovableTags == nil {
		config.RemovableTags = defaults.RemovableTags
	}
	if config.KeepTags == nil {
		config.KeepTags = defaults.KeepTags
	}
	if config.RequiredChildren == nil {
		config.RequiredChildren = defaults.RequiredChildren
	}
	if config.LineBreakTag == "" {
		config.LineBreakTag = defaults.LineBreakTag
	}
	if config.MaxLoopDepth == 0 {
		config.MaxLoopDepth = defaults.MaxLoopDepth
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		verr.Issues = append(verr.Issues, ValidationIssue{
			Field:   fe.Namespace(),
			Message: validationMessage(fe),
		})
	}
	return verr
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + fe.Param()
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "min":
		return "must be at least " + fe.Param()
	default:
		return fmt.Sprintf("failed '%s' validation", fe.Tag())
	}
}

// delimiters converts the configured delimiters for the render package
func (c *Config) delimiters() render.Delimiters {
	return render.Delimiters{Open: c.Delimiters.Open, Close: c.Delimiters.Close}
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	// Return a copy to prevent modification
	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Update logger based on new config (outside the lock to avoid deadlock)
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
