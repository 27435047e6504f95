package providers

import (
	"github.com/buildhook/webhook-dispatcher/pkg/jsonpath"
)

const (
	bitbucketEventHeader = "x-event-key"
	bitbucketPingEvent   = "diagnostics:ping"
)

// BitbucketProvider handles deliveries carrying an X-Event-Key header, such
// as "repo:refs_changed" or "pr:opened"
type BitbucketProvider struct{}

// NewBitbucketProvider creates a Bitbucket provider
func NewBitbucketProvider() *BitbucketProvider {
	return &BitbucketProvider{}
}

// Name returns the provider name
func (p *BitbucketProvider) Name() string {
	return "bitbucket"
}

// Matches reports whether the event key header is present
func (p *BitbucketProvider) Matches(headers map[string]string) bool {
	_, ok := headers[bitbucketEventHeader]
	return ok
}

// IsPing reports whether the event key is the diagnostics ping
func (p *BitbucketProvider) IsPing(headers map[string]string) bool {
	return headers[bitbucketEventHeader] == bitbucketPingEvent
}

// EventType returns the event key header value
func (p *BitbucketProvider) EventType(headers map[string]string, _ jsonpath.Value) string {
	return headers[bitbucketEventHeader]
}
