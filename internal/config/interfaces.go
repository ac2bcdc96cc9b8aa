package config

import "context"

// SecretProvider resolves secret references (SSM parameter paths or plain
// variable names) into plaintext values.
type SecretProvider interface {
	// GetParametersBatch returns a map of key -> value for every key it could
	// resolve. Keys it cannot find are omitted rather than reported as errors.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
