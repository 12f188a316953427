package instance

import (
	"os"
	"strings"
)

var sources = []string{"POS_INSTANCE_ID", "DYNO", "HOSTNAME"}

// GetID names this process for lease ownership and log fields. It prefers
// POS_INSTANCE_ID, then the platform dyno name, then the host name.
func GetID() string {
	for _, key := range sources {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "pos-0"
}
