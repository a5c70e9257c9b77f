package config

import (
	"strings"
	"time"
)

type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
}

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL defaults to the host loopback as seen from the Android emulator.
func (API) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv("API_BASE_URL", "http://10.0.2.2:5001/api"), "/")
}

func (API) GetAPITimeout() time.Duration {
	return GetDurationEnv("API_TIMEOUT", 10*time.Second)
}
