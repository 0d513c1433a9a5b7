// Package config holds the settings of a mirror run. They are assembled
// once from flags, GHMIRROR_* environment variables and an optional config
// file, validated, and then only read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/NicabarNimble/ghmirror/internal/errors"
)

// EnvPrefix is prepended to every setting read from the environment, e.g.
// GHMIRROR_MIRROR_HOST.
const EnvPrefix = "GHMIRROR"

// Keys of the settings, shared with the command line flags.
const (
	KeyConfig             = "config"
	KeyEntity             = "entity"
	KeyRepo               = "repo"
	KeyMirrorHost         = "mirror-host"
	KeyMirrorType         = "mirror-type"
	KeyRepositoryType     = "repository-type"
	KeyAccess             = "github-access"
	KeyWorkingDirectory   = "working-directory"
	KeyRepoDirectory      = "repo-directory"
	KeyWebhookURL         = "webhook-url"
	KeyWebhookContentType = "webhook-content-type"
	KeyWebhookEvents      = "webhook-events"
	KeyQuiet              = "quiet"
	KeyConcurrency        = "concurrency"
	KeyPerPage            = "per-page"
	KeyGitoliteGroup      = "gitolite-group"
	KeyGitLabURL          = "gitlab-url"
	KeyMetricsFile        = "metrics-file"
	KeyLogLevel           = "log-level"
)

// WebhookConfig describes the webhook installed on every mirrored
// repository. An empty URL disables it.
type WebhookConfig struct {
	URL         string   `mapstructure:"webhook-url" validate:"omitempty,url"`
	ContentType string   `mapstructure:"webhook-content-type" validate:"required_with=URL"`
	Events      []string `mapstructure:"webhook-events" validate:"required_with=URL,dive,required"`
}

// MirrorConfig is the configuration of one run.
type MirrorConfig struct {
	Entity string `mapstructure:"entity" validate:"required"`
	// Repo narrows the run to a single repository.
	Repo string `mapstructure:"repo"`

	MirrorHost     string `mapstructure:"mirror-host"`
	MirrorType     string `mapstructure:"mirror-type" validate:"oneof=none gitolite gitlab"`
	RepositoryType string `mapstructure:"repository-type" validate:"oneof=private public all owner"`
	Access         string `mapstructure:"github-access" validate:"oneof=org user"`

	WorkingDirectory string `mapstructure:"working-directory" validate:"required"`
	RepoDirectory    string `mapstructure:"repo-directory" validate:"required"`

	Webhook WebhookConfig `mapstructure:",squash"`

	Quiet       bool   `mapstructure:"quiet"`
	Concurrency int    `mapstructure:"concurrency" validate:"min=1"`
	PerPage     int    `mapstructure:"per-page" validate:"min=1,max=100"`
	LogLevel    string `mapstructure:"log-level" validate:"omitempty,oneof=trace debug info warn warning error"`

	GitoliteGroup string `mapstructure:"gitolite-group" validate:"required"`
	GitLabURL     string `mapstructure:"gitlab-url" validate:"omitempty,url"`
	MetricsFile   string `mapstructure:"metrics-file"`
}

// DefaultConfig provides default configuration values
func DefaultConfig() *MirrorConfig {
	return &MirrorConfig{
		MirrorType:       "gitolite",
		RepositoryType:   "private",
		Access:           "org",
		WorkingDirectory: ".",
		RepoDirectory:    "repos",
		Webhook: WebhookConfig{
			ContentType: "application/x-www-form-urlencoded",
			Events:      []string{"push"},
		},
		Concurrency:   4,
		PerPage:       100,
		LogLevel:      "info",
		GitoliteGroup: "@mirror",
		GitLabURL:     "https://gitlab.com",
	}
}

// SetDefaults registers DefaultConfig on v so every key is known to viper,
// which is what lets environment variables reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeyEntity, d.Entity)
	v.SetDefault(KeyRepo, d.Repo)
	v.SetDefault(KeyMirrorHost, d.MirrorHost)
	v.SetDefault(KeyMirrorType, d.MirrorType)
	v.SetDefault(KeyRepositoryType, d.RepositoryType)
	v.SetDefault(KeyAccess, d.Access)
	v.SetDefault(KeyWorkingDirectory, d.WorkingDirectory)
	v.SetDefault(KeyRepoDirectory, d.RepoDirectory)
	v.SetDefault(KeyWebhookURL, d.Webhook.URL)
	v.SetDefault(KeyWebhookContentType, d.Webhook.ContentType)
	v.SetDefault(KeyWebhookEvents, d.Webhook.Events)
	v.SetDefault(KeyQuiet, d.Quiet)
	v.SetDefault(KeyConcurrency, d.Concurrency)
	v.SetDefault(KeyPerPage, d.PerPage)
	v.SetDefault(KeyGitoliteGroup, d.GitoliteGroup)
	v.SetDefault(KeyGitLabURL, d.GitLabURL)
	v.SetDefault(KeyMetricsFile, d.MetricsFile)
	v.SetDefault(KeyLogLevel, d.LogLevel)
}

// Load builds a MirrorConfig from v. Flags are expected to be bound to v
// already; the environment and the file named by the config key are
// layered underneath them.
func Load(v *viper.Viper) (*MirrorConfig, error) {
	const op = "load config"

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.E(errors.ConfigurationInvalid, op, fmt.Errorf("failed to read config file: %w", err))
		}
	}

	cfg := &MirrorConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.E(errors.ConfigurationInvalid, op, fmt.Errorf("failed to parse config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report settings by the names users type
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks if the configuration is valid
func (c *MirrorConfig) Validate() error {
	const op = "validate config"

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return errors.Errorf(errors.ConfigurationInvalid, op, "%s", strings.Join(msgs, "; "))
		}
		return errors.E(errors.ConfigurationInvalid, op, err)
	}

	fi, err := os.Stat(c.WorkingDirectory)
	if err != nil || !fi.IsDir() {
		return errors.Errorf(errors.ConfigurationInvalid, op, "Working directory %s does not exist", c.WorkingDirectory)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s", fe.Field(), map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

// RepoPath is the directory local mirrors are kept in.
func (c *MirrorConfig) RepoPath() string {
	return filepath.Join(c.WorkingDirectory, c.RepoDirectory)
}

// EnsureRepoPath creates RepoPath if it does not exist yet.
func (c *MirrorConfig) EnsureRepoPath() error {
	dir := c.RepoPath()
	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		return nil
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		return errors.E(errors.ConfigurationInvalid, "setup", fmt.Errorf("could not create directory %s: %w", dir, err))
	}
	return nil
}

// HasDestination reports whether a mirror host is configured.
func (c *MirrorConfig) HasDestination() bool {
	return c.MirrorHost != ""
}

// HasWebhook reports whether a webhook should be installed.
func (c *MirrorConfig) HasWebhook() bool {
	return c.Webhook.URL != ""
}
