package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Settings is the per-invocation dispatcher configuration read from the
// environment. Missing values are reported by Validate rather than at parse
// time so that the caller can answer the webhook with the list of gaps.
type Settings struct {
	ProjectName       string `env:"CODEBUILD_PROJECT_NAME" validate:"required"`
	EnvVarsMap        string `env:"CODEBUILD_ENV_VARS_MAP" validate:"required"`
	CodeBuildURL      string `env:"CODEBUILD_URL" validate:"required"`
	GitServerURL      string `env:"GIT_SERVER_URL" validate:"required"`
	GitUsernameSecret string `env:"GIT_USERNAME_SM_ARN" validate:"required"`
	GitTokenSecret    string `env:"GIT_TOKEN_SM_ARN" validate:"required"`
	EventType         string `env:"WEBHOOK_EVENT_TYPE" validate:"required"`
	ValidateSignature string `env:"VALIDATE_DIGITAL_SIGNATURE" validate:"required"`

	GitSecretSecret string `env:"GIT_SECRET_SM_ARN"`
	CallbackURI     string `env:"GIT_CALLBACK_URI"`
	CallbackPayload string `env:"GIT_CALLBACK_PAYLOAD"`

	PassthroughPrefixes []string `env:"PASSTHROUGH_PREFIXES" envSeparator:"," envDefault:"USERVAR_,GIT_"`
	LogLevel            string   `env:"LOGGING_LEVEL" envDefault:"INFO"`

	// Environment is the full variable snapshot the settings were read from
	Environment map[string]string `env:"-"`
}

// MissingSettingsError lists mandatory variables that are unset or empty
type MissingSettingsError struct {
	Variables []string
}

func (e *MissingSettingsError) Error() string {
	parts := make([]string, 0, len(e.Variables))
	for _, name := range e.Variables {
		parts = append(parts, fmt.Sprintf("Variable: %s must not be empty", name))
	}
	return strings.Join(parts, " ")
}

var settingsValidator = newSettingsValidator()

func newSettingsValidator() *validator.Validate {
	v := validator.New()
	// Report fields under their environment variable names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("env"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// LoadSettings reads settings from the process environment
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(os.Environ())
}

// LoadSettingsFrom reads settings from a list of KEY=value pairs
func LoadSettingsFrom(environ []string) (*Settings, error) {
	vars := env.ToMap(environ)

	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	s.Environment = vars

	prefixes := s.PassthroughPrefixes[:0]
	for _, p := range s.PassthroughPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	s.PassthroughPrefixes = prefixes

	return &s, nil
}

// Validate checks that every mandatory setting is present. The signing secret
// reference becomes mandatory once signature validation is switched on.
func (s *Settings) Validate() error {
	var missing []string

	if err := settingsValidator.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return err
		}
		for _, fe := range validationErrs {
			missing = append(missing, fe.Field())
		}
	}

	if s.SignatureValidationEnabled() && strings.TrimSpace(s.GitSecretSecret) == "" {
		missing = append(missing, "GIT_SECRET_SM_ARN")
	}

	if len(missing) > 0 {
		return &MissingSettingsError{Variables: missing}
	}
	return nil
}

// SignatureValidationEnabled reports whether VALIDATE_DIGITAL_SIGNATURE is
// "true" in any letter case
func (s *Settings) SignatureValidationEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(s.ValidateSignature), "true")
}

// CallbackConfigured reports whether a status callback URL is set
func (s *Settings) CallbackConfigured() bool {
	return s.CallbackURI != ""
}
