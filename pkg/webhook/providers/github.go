package providers

import (
	"github.com/buildhook/webhook-dispatcher/pkg/jsonpath"
)

const (
	githubEventHeader = "x-github-event"
	githubPingEvent   = "ping"
	githubActionField = "action"
)

// GitHubProvider handles deliveries carrying an X-GitHub-Event header. The
// event type is the body's action field, so a pull request delivery yields
// "opened" or "synchronize".
type GitHubProvider struct{}

// NewGitHubProvider creates a GitHub provider
func NewGitHubProvider() *GitHubProvider {
	return &GitHubProvider{}
}

// Name returns the provider name
func (p *GitHubProvider) Name() string {
	return "github"
}

// Matches reports whether the event header is present
func (p *GitHubProvider) Matches(headers map[string]string) bool {
	_, ok := headers[githubEventHeader]
	return ok
}

// IsPing reports whether the event header announces a ping
func (p *GitHubProvider) IsPing(headers map[string]string) bool {
	return headers[githubEventHeader] == githubPingEvent
}

// EventType returns the body action, or the header value for events that
// carry no action such as push
func (p *GitHubProvider) EventType(headers map[string]string, payload jsonpath.Value) string {
	if action, ok := payload.Field(githubActionField); ok {
		if s, ok := action.AsString(); ok && s != "" {
			return s
		}
	}
	return headers[githubEventHeader]
}
