package config

import (
	"errors"
	"strings"
	"testing"
)

func completeEnviron() []string {
	return []string{
		"CODEBUILD_PROJECT_NAME=webapp-ci",
		`CODEBUILD_ENV_VARS_MAP={"BRANCH":"changes[type=UPDATE].ref.displayId"}`,
		"CODEBUILD_URL=https://console.aws.amazon.com/codesuite/codebuild",
		"GIT_SERVER_URL=https://git.example.com",
		"GIT_USERNAME_SM_ARN=arn:aws:secretsmanager:eu-west-1:123:secret:git-user",
		"GIT_TOKEN_SM_ARN=arn:aws:secretsmanager:eu-west-1:123:secret:git-token",
		"WEBHOOK_EVENT_TYPE=repo:refs_changed",
		"VALIDATE_DIGITAL_SIGNATURE=false",
		"USERVAR_STAGE=qa",
	}
}

func TestLoadSettingsFrom(t *testing.T) {
	s, err := LoadSettingsFrom(append(completeEnviron(), "GIT_CALLBACK_URI=https://git.example.com/status/{{LATEST_COMMIT_HASH}}"))
	if err != nil {
		t.Fatalf("LoadSettingsFrom() error = %v", err)
	}

	if s.ProjectName != "webapp-ci" {
		t.Errorf("ProjectName = %s, want webapp-ci", s.ProjectName)
	}
	if s.EventType != "repo:refs_changed" {
		t.Errorf("EventType = %s", s.EventType)
	}
	if !strings.HasPrefix(s.EnvVarsMap, "{") {
		t.Errorf("EnvVarsMap = %s, want the raw JSON", s.EnvVarsMap)
	}
	if s.LogLevel != "INFO" {
		t.Errorf("LogLevel = %s, want INFO default", s.LogLevel)
	}
	if strings.Join(s.PassthroughPrefixes, ",") != "USERVAR_,GIT_" {
		t.Errorf("PassthroughPrefixes = %v, want default", s.PassthroughPrefixes)
	}
	if s.Environment["USERVAR_STAGE"] != "qa" {
		t.Errorf("Environment snapshot missing USERVAR_STAGE: %v", s.Environment)
	}
	if !s.CallbackConfigured() {
		t.Error("CallbackConfigured() = false, want true")
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadSettingsFrom_CustomPrefixes(t *testing.T) {
	s, err := LoadSettingsFrom(append(completeEnviron(), "PASSTHROUGH_PREFIXES=CI_, BUILD_"))
	if err != nil {
		t.Fatalf("LoadSettingsFrom() error = %v", err)
	}
	if strings.Join(s.PassthroughPrefixes, ",") != "CI_,BUILD_" {
		t.Errorf("PassthroughPrefixes = %v, want [CI_ BUILD_]", s.PassthroughPrefixes)
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name        string
		environ     []string
		wantMissing []string
	}{
		{
			name:    "nothing set",
			environ: nil,
			wantMissing: []string{
				"CODEBUILD_PROJECT_NAME", "CODEBUILD_ENV_VARS_MAP", "CODEBUILD_URL", "GIT_SERVER_URL",
				"GIT_USERNAME_SM_ARN", "GIT_TOKEN_SM_ARN", "WEBHOOK_EVENT_TYPE", "VALIDATE_DIGITAL_SIGNATURE",
			},
		},
		{
			name:        "empty value counts as missing",
			environ:     append(completeEnviron(), "CODEBUILD_URL="),
			wantMissing: []string{"CODEBUILD_URL"},
		},
		{
			name:        "signing secret required when validation is on",
			environ:     append(completeEnviron(), "VALIDATE_DIGITAL_SIGNATURE=TRUE"),
			wantMissing: []string{"GIT_SECRET_SM_ARN"},
		},
		{
			name:        "signing secret present",
			environ:     append(completeEnviron(), "VALIDATE_DIGITAL_SIGNATURE=true", "GIT_SECRET_SM_ARN=arn:secret"),
			wantMissing: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := LoadSettingsFrom(tt.environ)
			if err != nil {
				t.Fatalf("LoadSettingsFrom() error = %v", err)
			}

			err = s.Validate()
			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			var missingErr *MissingSettingsError
			if !errors.As(err, &missingErr) {
				t.Fatalf("Validate() error = %v, want *MissingSettingsError", err)
			}
			if strings.Join(missingErr.Variables, ",") != strings.Join(tt.wantMissing, ",") {
				t.Errorf("Variables = %v, want %v", missingErr.Variables, tt.wantMissing)
			}
			for _, name := range tt.wantMissing {
				if !strings.Contains(err.Error(), "Variable: "+name+" must not be empty") {
					t.Errorf("Validate() error = %q, want message naming %s", err.Error(), name)
				}
			}
		})
	}
}

func TestSettings_SignatureValidationEnabled(t *testing.T) {
	for value, want := range map[string]bool{"true": true, "TRUE": true, "True": true, "false": false, "yes": false, "": false} {
		s := &Settings{ValidateSignature: value}
		if got := s.SignatureValidationEnabled(); got != want {
			t.Errorf("SignatureValidationEnabled(%q) = %v, want %v", value, got, want)
		}
	}
}
