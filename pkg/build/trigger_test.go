package build

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	"github.com/aws/aws-sdk-go-v2/service/codebuild/types"
	"github.com/sirupsen/logrus"
)

type fakeCodeBuild struct {
	input *codebuild.StartBuildInput
	out   *codebuild.StartBuildOutput
	err   error
}

func (f *fakeCodeBuild) StartBuild(_ context.Context, params *codebuild.StartBuildInput, _ ...func(*codebuild.Options)) (*codebuild.StartBuildOutput, error) {
	f.input = params
	return f.out, f.err
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestCodeBuildTrigger(t *testing.T) {
	fake := &fakeCodeBuild{
		out: &codebuild.StartBuildOutput{Build: &types.Build{Id: aws.String("webapp-ci:1234")}},
	}
	trigger := NewCodeBuildTrigger(fake, testLogger())

	id, err := trigger.Trigger(context.Background(), "webapp-ci", map[string]string{
		"BRANCH":        "main",
		"USERVAR_STAGE": "qa",
	})
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if id != "webapp-ci:1234" {
		t.Errorf("Trigger() = %s, want webapp-ci:1234", id)
	}

	if aws.ToString(fake.input.ProjectName) != "webapp-ci" {
		t.Errorf("ProjectName = %s", aws.ToString(fake.input.ProjectName))
	}
	overrides := fake.input.EnvironmentVariablesOverride
	if len(overrides) != 2 {
		t.Fatalf("overrides = %d, want 2", len(overrides))
	}
	if aws.ToString(overrides[0].Name) != "BRANCH" || aws.ToString(overrides[0].Value) != "main" {
		t.Errorf("overrides[0] = %s=%s", aws.ToString(overrides[0].Name), aws.ToString(overrides[0].Value))
	}
	if overrides[1].Type != types.EnvironmentVariableTypePlaintext {
		t.Errorf("overrides[1].Type = %s, want PLAINTEXT", overrides[1].Type)
	}
}

func TestCodeBuildTrigger_Errors(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeCodeBuild
	}{
		{name: "client error", fake: &fakeCodeBuild{err: errors.New("ResourceNotFoundException")}},
		{name: "no build in response", fake: &fakeCodeBuild{out: &codebuild.StartBuildOutput{}}},
		{name: "empty build id", fake: &fakeCodeBuild{out: &codebuild.StartBuildOutput{Build: &types.Build{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodeBuildTrigger(tt.fake, testLogger()).Trigger(context.Background(), "webapp-ci", nil)

			var triggerErr *TriggerError
			if !errors.As(err, &triggerErr) {
				t.Fatalf("Trigger() error = %v, want *TriggerError", err)
			}
			if triggerErr.Project != "webapp-ci" {
				t.Errorf("Project = %s, want webapp-ci", triggerErr.Project)
			}
		})
	}
}
