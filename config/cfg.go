package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"mailstage/content"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	TemplatesConfig struct {
		Dir   string            `yaml:"dir" sanitize:"path_clean" validate:"required"`
		Files map[string]string `yaml:"files" validate:"required,dive,required"`
	}

	IndexConfig struct {
		CachePath   string `yaml:"cache_path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
		MaxAgeHours int    `yaml:"max_age_hours" validate:"min=1"`
		FeedURL     string `yaml:"feed_url" validate:"omitempty,url"`
	}

	WordPressConfig struct {
		BaseURL        string       `yaml:"base_url" validate:"required,url"`
		Username       string       `yaml:"username"`
		AppPassword    SecretString `yaml:"app_password"`
		TimeoutSeconds int          `yaml:"timeout_seconds" validate:"min=1"`
	}

	LLMConfig struct {
		Endpoint       string       `yaml:"endpoint" validate:"required,url"`
		Model          string       `yaml:"model" validate:"required"`
		APIKey         SecretString `yaml:"api_key"`
		MaxTokens      int          `yaml:"max_tokens" validate:"min=1"`
		TimeoutSeconds int          `yaml:"timeout_seconds" validate:"min=1"`
	}

	StagingConfig struct {
		OutputDir          string `yaml:"output_dir" sanitize:"path_clean" validate:"required"`
		OutputNameTemplate string `yaml:"output_name_template"`
		SiteName           string `yaml:"site_name"`
		IntroOptionsPath   string `yaml:"intro_options_path" sanitize:"path_clean" validate:"omitempty,filepath"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Templates TemplatesConfig `yaml:"templates"`
		Index     IndexConfig     `yaml:"index"`
		WordPress WordPressConfig `yaml:"wordpress"`
		LLM       LLMConfig       `yaml:"llm"`
		Staging   StagingConfig   `yaml:"staging"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

// TemplatePath resolves the skeleton document file for a template variant.
func (c *TemplatesConfig) TemplatePath(variant content.TemplateVariant) (string, error) {
	name, ok := c.Files[variant.String()]
	if !ok {
		return "", fmt.Errorf("no template file configured for variant %s", variant)
	}
	return filepath.Join(c.Dir, name), nil
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("failed to validate configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
