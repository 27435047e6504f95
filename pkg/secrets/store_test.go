package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type fakeSecretsManager struct {
	values map[string]string
	err    error
	asked  []string
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	id := aws.ToString(params.SecretId)
	f.asked = append(f.asked, id)
	if f.err != nil {
		return nil, f.err
	}
	value, ok := f.values[id]
	if !ok {
		return &secretsmanager.GetSecretValueOutput{}, nil
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(value)}, nil
}

func TestSecretsManagerStore_GetSecret(t *testing.T) {
	fake := &fakeSecretsManager{values: map[string]string{"arn:git-token": "s3cret"}}
	store := NewSecretsManagerStore(fake)

	got, err := store.GetSecret(context.Background(), "arn:git-token")
	if err != nil {
		t.Fatalf("GetSecret() error = %v", err)
	}
	if got != "s3cret" {
		t.Errorf("GetSecret() = %q, want s3cret", got)
	}
	if len(fake.asked) != 1 || fake.asked[0] != "arn:git-token" {
		t.Errorf("SecretId requests = %v", fake.asked)
	}
}

func TestSecretsManagerStore_Errors(t *testing.T) {
	tests := []struct {
		name        string
		fake        *fakeSecretsManager
		errContains string
	}{
		{
			name:        "client error",
			fake:        &fakeSecretsManager{err: errors.New("AccessDeniedException")},
			errContains: "AccessDeniedException",
		},
		{
			name:        "binary secret",
			fake:        &fakeSecretsManager{},
			errContains: "has no string value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSecretsManagerStore(tt.fake).GetSecret(context.Background(), "arn:x")
			if err == nil {
				t.Fatal("GetSecret() error = nil, want error")
			}
			if !contains(err.Error(), tt.errContains) {
				t.Errorf("GetSecret() error = %v, want error containing %q", err, tt.errContains)
			}
		})
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "git-token"), []byte("s3cret\n"), 0600); err != nil {
		t.Fatalf("Failed to write secret: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0700); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	for _, ref := range []string{"git-token", "arn:aws:secretsmanager:eu-west-1:123:secret:git-token", "team/git-token"} {
		got, err := store.GetSecret(context.Background(), ref)
		if err != nil {
			t.Errorf("GetSecret(%q) error = %v", ref, err)
			continue
		}
		if got != "s3cret" {
			t.Errorf("GetSecret(%q) = %q, want trimmed s3cret", ref, got)
		}
	}

	_, err = store.GetSecret(context.Background(), "nested")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("GetSecret(nested) error = %v, want *NotFoundError", err)
	}
}

func TestFileStore_MissingDirectory(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if _, err := store.GetSecret(context.Background(), "x"); err == nil {
		t.Error("GetSecret() error = nil, want not found")
	}
}

func TestStaticStore(t *testing.T) {
	store := StaticStore{"a": "1"}
	if got, err := store.GetSecret(context.Background(), "a"); err != nil || got != "1" {
		t.Errorf("GetSecret(a) = %q, %v", got, err)
	}
	if _, err := store.GetSecret(context.Background(), "b"); err == nil {
		t.Error("GetSecret(b) error = nil, want not found")
	}
}

func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
