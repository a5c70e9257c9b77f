package config

type SyncConfig interface {
	GetRefreshCoalescing() bool
}

type Sync struct{}

var _ SyncConfig = Sync{}

// GetRefreshCoalescing shares one /refresh_token call between concurrent 401s.
func (Sync) GetRefreshCoalescing() bool {
	return GetBoolEnv("REFRESH_COALESCING", true)
}
