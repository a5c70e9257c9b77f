package config

import "path/filepath"

type StorageConfig interface {
	GetDataFolder() string
	GetDatabasePath() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetDataFolder() string {
	return GetEnv("DATA_FOLDER", "./data")
}

func (s Storage) GetDatabasePath() string {
	return filepath.Join(s.GetDataFolder(), GetEnv("DB_NAME", "HRApp.db"))
}
