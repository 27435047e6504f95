// Package build starts build jobs for a webhook's parameter set.
package build

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	"github.com/aws/aws-sdk-go-v2/service/codebuild/types"
	"github.com/sirupsen/logrus"
)

// Trigger starts a build of project with params and returns its id
type Trigger interface {
	Trigger(ctx context.Context, project string, params map[string]string) (string, error)
}

// TriggerError wraps a failure reported by the build service
type TriggerError struct {
	Project string
	Err     error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("failed to start build for project %s: %v", e.Project, e.Err)
}

func (e *TriggerError) Unwrap() error {
	return e.Err
}

// CodeBuildAPI is the subset of the CodeBuild client used here
type CodeBuildAPI interface {
	StartBuild(ctx context.Context, params *codebuild.StartBuildInput, optFns ...func(*codebuild.Options)) (*codebuild.StartBuildOutput, error)
}

// CodeBuildTrigger starts AWS CodeBuild builds, passing the parameters as
// plaintext environment variable overrides
type CodeBuildTrigger struct {
	client CodeBuildAPI
	logger *logrus.Logger
}

// NewCodeBuildTrigger creates a trigger backed by client
func NewCodeBuildTrigger(client CodeBuildAPI, logger *logrus.Logger) *CodeBuildTrigger {
	return &CodeBuildTrigger{client: client, logger: logger}
}

// NewCodeBuildTriggerFromConfig creates a trigger from an AWS configuration
func NewCodeBuildTriggerFromConfig(cfg aws.Config, logger *logrus.Logger) *CodeBuildTrigger {
	return NewCodeBuildTrigger(codebuild.NewFromConfig(cfg), logger)
}

// Trigger starts one build and returns the build id
func (t *CodeBuildTrigger) Trigger(ctx context.Context, project string, params map[string]string) (string, error) {
	t.logger.WithFields(logrus.Fields{
		"project":    project,
		"parameters": len(params),
	}).Info("Starting CodeBuild job")

	out, err := t.client.StartBuild(ctx, &codebuild.StartBuildInput{
		ProjectName:                  aws.String(project),
		EnvironmentVariablesOverride: environmentOverrides(params),
	})
	if err != nil {
		return "", &TriggerError{Project: project, Err: err}
	}
	if out.Build == nil || aws.ToString(out.Build.Id) == "" {
		return "", &TriggerError{Project: project, Err: fmt.Errorf("response carries no build id")}
	}

	return aws.ToString(out.Build.Id), nil
}

func environmentOverrides(params map[string]string) []types.EnvironmentVariable {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make([]types.EnvironmentVariable, 0, len(names))
	for _, name := range names {
		vars = append(vars, types.EnvironmentVariable{
			Name:  aws.String(name),
			Value: aws.String(params[name]),
			Type:  types.EnvironmentVariableTypePlaintext,
		})
	}
	return vars
}
