package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore serves secrets from files in a mounted directory, one file per
// secret. References are mapped onto file names by their last path or ARN
// component, so "arn:aws:secretsmanager:...:secret:git-token" reads
// <dir>/git-token.
type FileStore struct {
	secrets map[string]string
}

// NewFileStore loads every regular file in dir. A missing directory yields
// an empty store.
func NewFileStore(dir string) (*FileStore, error) {
	secrets, err := loadSecretsFromFiles(dir)
	if err != nil {
		return nil, err
	}
	return &FileStore{secrets: secrets}, nil
}

// GetSecret returns the content of the file named after ref
func (s *FileStore) GetSecret(_ context.Context, ref string) (string, error) {
	if value, ok := s.secrets[ref]; ok {
		return value, nil
	}
	if value, ok := s.secrets[fileName(ref)]; ok {
		return value, nil
	}
	return "", &NotFoundError{Ref: ref}
}

// fileName picks the last ':' or '/' separated component of ref
func fileName(ref string) string {
	if i := strings.LastIndexAny(ref, ":/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// loadSecretsFromFiles loads secrets from mounted secret volumes
// Returns a map of secret names to their values
func loadSecretsFromFiles(secretsDir string) (map[string]string, error) {
	secrets := make(map[string]string)

	// Check if secrets directory exists
	if _, err := os.Stat(secretsDir); os.IsNotExist(err) {
		return secrets, nil
	}

	files, err := os.ReadDir(secretsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		secretPath := filepath.Join(secretsDir, file.Name())
		content, err := os.ReadFile(secretPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read secret file %s: %w", file.Name(), err)
		}

		// Store secret with trimmed content
		secrets[file.Name()] = strings.TrimSpace(string(content))
	}

	return secrets, nil
}
