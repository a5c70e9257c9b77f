package config

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	SyncConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetPort() string
	GetFakeJWTSecret() string
}

type mainConfig struct {
	EnvVars
	API
	Storage
	Sync
}

func New() Config {
	return mainConfig{}
}
