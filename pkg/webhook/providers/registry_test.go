package providers

import (
	"testing"

	"github.com/buildhook/webhook-dispatcher/pkg/jsonpath"
)

func TestRegistry_Detect(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		name     string
		headers  map[string]string
		wantName string
		wantErr  bool
	}{
		{name: "bitbucket", headers: map[string]string{"x-event-key": "repo:refs_changed"}, wantName: "bitbucket"},
		{name: "github", headers: map[string]string{"x-github-event": "pull_request"}, wantName: "github"},
		{name: "both prefers bitbucket", headers: map[string]string{"x-event-key": "pr:opened", "x-github-event": "ping"}, wantName: "bitbucket"},
		{name: "none", headers: map[string]string{"content-type": "application/json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := registry.Detect(tt.headers)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Detect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Name() != tt.wantName {
				t.Errorf("Detect() = %s, want %s", p.Name(), tt.wantName)
			}
		})
	}
}

func TestBitbucketProvider(t *testing.T) {
	p := NewBitbucketProvider()

	if !p.IsPing(map[string]string{"x-event-key": "diagnostics:ping"}) {
		t.Error("IsPing(diagnostics:ping) = false, want true")
	}
	if p.IsPing(map[string]string{"x-event-key": "repo:refs_changed"}) {
		t.Error("IsPing(repo:refs_changed) = true, want false")
	}

	got := p.EventType(map[string]string{"x-event-key": "pr:opened"}, jsonpath.Object(nil))
	if got != "pr:opened" {
		t.Errorf("EventType() = %s, want pr:opened", got)
	}
}

func TestGitHubProvider_EventType(t *testing.T) {
	p := NewGitHubProvider()
	headers := map[string]string{"x-github-event": "pull_request"}

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{name: "action from body", payload: `{"action":"opened","number":7}`, want: "opened"},
		{name: "no action falls back to header", payload: `{"ref":"refs/heads/main"}`, want: "pull_request"},
		{name: "non-string action falls back to header", payload: `{"action":3}`, want: "pull_request"},
		{name: "non-object body falls back to header", payload: `[1,2]`, want: "pull_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := jsonpath.Parse([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Parse() failed: %v", err)
			}
			if got := p.EventType(headers, doc); got != tt.want {
				t.Errorf("EventType() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGitHubProvider_IsPing(t *testing.T) {
	p := NewGitHubProvider()
	if !p.IsPing(map[string]string{"x-github-event": "ping"}) {
		t.Error("IsPing(ping) = false, want true")
	}
	if p.IsPing(map[string]string{"x-github-event": "push"}) {
		t.Error("IsPing(push) = true, want false")
	}
}

type staticProvider struct{}

func (staticProvider) Name() string { return "static" }

func (staticProvider) IsPing(map[string]string) bool { return false }

func (staticProvider) Matches(headers map[string]string) bool {
	_, ok := headers["x-static-event"]
	return ok
}

func (staticProvider) EventType(headers map[string]string, _ jsonpath.Value) string {
	return headers["x-static-event"]
}

func TestRegistry_DetectionOrder(t *testing.T) {
	registry := NewRegistry()
	registry.providers = append(registry.providers, staticProvider{})

	names := registry.Names()
	if len(names) != 3 || names[0] != "bitbucket" || names[1] != "github" || names[2] != "static" {
		t.Errorf("Names() = %v, want bitbucket, github, static", names)
	}
	if p, err := registry.Detect(map[string]string{"x-static-event": "build"}); err != nil || p.Name() != "static" {
		t.Errorf("Detect() = %v, %v", p, err)
	}
}
