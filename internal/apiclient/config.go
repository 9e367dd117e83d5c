package apiclient

import "strings"

// Environment variables consulted by ResolveConfig's callers.
const (
	EnvEndpoint = "HWREQ_ENDPOINT"
	EnvToken    = "HWREQ_TOKEN"
)

// ResolveConfig applies configuration precedence where explicit values
// (flags) override environment values. Empty explicit values are treated as
// unset.
func ResolveConfig(flagEndpoint, flagToken, envEndpoint, envToken string) (endpoint, token string) {
	endpoint = strings.TrimSpace(envEndpoint)
	token = strings.TrimSpace(envToken)

	if value := strings.TrimSpace(flagEndpoint); value != "" {
		endpoint = value
	}
	if value := strings.TrimSpace(flagToken); value != "" {
		token = value
	}

	return endpoint, token
}
