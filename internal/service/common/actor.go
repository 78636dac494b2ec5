//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	"github.com/oshokin/traffic-light/internal/domain/light"
)

// DetectActor gathers host and user information for the server logs.
func DetectActor() (*light.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &light.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
