package models

// BuildStatus is the state reported to the version-control system
type BuildStatus string

const (
	BuildStatusInProgress BuildStatus = "INPROGRESS"
	BuildStatusFailed     BuildStatus = "FAILED"

	// BuildStatusSuccess is never reported by the dispatcher. Completion is
	// expected to be reported by the build itself.
	BuildStatusSuccess BuildStatus = "SUCCESS"
)

// Template variable names set by the dispatcher
const (
	VarBuildID             = "CODEBUILD_BUILD_ID"
	VarBuildStatus         = "CODEBUILD_STATUS"
	VarCallbackDescription = "CALLBACK_DESCRIPTION"
	VarGitUsername         = "GIT_USERNAME"
	VarGitToken            = "GIT_TOKEN"
	VarGitSecret           = "GIT_SECRET"
	VarLatestCommitHash    = "LATEST_COMMIT_HASH"
	VarLatestShortHash     = "LATEST_SHORT_HASH"
)

// Credentials authenticate the status callback
type Credentials struct {
	Username string
	Token    string
}

// IsSet reports whether any credential was loaded
func (c Credentials) IsSet() bool {
	return c.Username != "" || c.Token != ""
}

// CallbackContext carries the variables a status callback is rendered from
type CallbackContext struct {
	Variables   map[string]string
	Credentials Credentials
}

// NewCallbackContext copies vars into a fresh context
func NewCallbackContext(vars map[string]string) *CallbackContext {
	copied := make(map[string]string, len(vars)+4)
	for k, v := range vars {
		copied[k] = v
	}
	return &CallbackContext{Variables: copied}
}

// SetStatus records the status and its description
func (c *CallbackContext) SetStatus(status BuildStatus, description string) {
	c.Variables[VarBuildStatus] = string(status)
	c.Variables[VarCallbackDescription] = description
}

// Status returns the status currently recorded
func (c *CallbackContext) Status() BuildStatus {
	return BuildStatus(c.Variables[VarBuildStatus])
}
