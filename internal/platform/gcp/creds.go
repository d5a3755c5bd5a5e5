package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

// ClientOptionsFromEnv prefers inline JSON credentials over a credentials file path.
// With neither set the client falls back to application default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	raw := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
	if strings.TrimSpace(raw) == "" {
		raw = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	return credentialOptions(raw)
}

func credentialOptions(raw string) []option.ClientOption {
	creds := strings.TrimSpace(raw)
	switch {
	case creds == "":
		return nil
	case strings.HasPrefix(creds, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(creds)}
	}
}
