// Package params builds the flat build parameter set from a webhook payload.
package params

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/buildhook/webhook-dispatcher/pkg/jsonpath"
	"gopkg.in/yaml.v3"
)

// DefaultPrefixes name the environment variables passed to every build verbatim
var DefaultPrefixes = []string{"USERVAR_", "GIT_"}

// MappingError identifies the variable whose path could not be resolved
type MappingError struct {
	Variable string
	Path     string
	Err      error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("failed to map variable %s from path %s: %v", e.Variable, e.Path, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// Map resolves every entry of pathMap against doc and merges the environment
// variables matching one of prefixes. Either every path resolves or no map is
// returned. An empty prefix list selects DefaultPrefixes.
func Map(doc jsonpath.Value, pathMap map[string]string, env map[string]string, prefixes []string) (map[string]string, error) {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	result := make(map[string]string, len(pathMap))

	// Sorted so the reported failure is deterministic
	names := make([]string, 0, len(pathMap))
	for name := range pathMap {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := pathMap[name]
		value, err := jsonpath.Resolve(doc, path)
		if err != nil {
			return nil, &MappingError{Variable: name, Path: path, Err: err}
		}
		result[name] = value.String()
	}

	for key, value := range env {
		if hasAnyPrefix(key, prefixes) {
			result[key] = value
		}
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("no build parameters produced")
	}

	return result, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// ParsePathMap decodes a variable name to path expression mapping. JSON is the
// usual form; YAML mappings are accepted too.
func ParsePathMap(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("path map is empty")
	}

	var pathMap map[string]string
	if err := json.Unmarshal([]byte(raw), &pathMap); err != nil {
		pathMap = nil
		if yamlErr := yaml.Unmarshal([]byte(raw), &pathMap); yamlErr != nil {
			return nil, fmt.Errorf("failed to parse path map: %w", err)
		}
	}
	if pathMap == nil {
		return nil, fmt.Errorf("path map must be a mapping")
	}

	for name, path := range pathMap {
		if name == "" {
			return nil, fmt.Errorf("path map contains an empty variable name")
		}
		if path == "" {
			return nil, fmt.Errorf("path for variable %s is empty", name)
		}
	}

	return pathMap, nil
}
