package config

import "github.com/google/uuid"

// generateID mints a new random server identity used as device_id when the
// config file does not yet carry one.
func generateID() string {
	return uuid.NewString()
}
