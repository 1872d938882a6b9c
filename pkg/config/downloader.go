package config

import "time"

// DownloaderConfig configures the downloader service.
type DownloaderConfig struct {
	Redis               RedisConfig
	Bus                 BusConfig
	WorkerCount         int
	TranslationEnabled  bool
	FallbackLanguage    string
	CatalogueBaseURL    string
	CatalogueAPIKey     string
	CatalogueTimeout    time.Duration
}

// LoadDownloaderConfig reads the downloader's configuration from the environment.
func LoadDownloaderConfig() (DownloaderConfig, error) {
	redisCfg, err := LoadRedisConfig()
	if err != nil {
		return DownloaderConfig{}, err
	}
	busCfg, err := LoadBusConfig()
	if err != nil {
		return DownloaderConfig{}, err
	}
	workers, err := getEnvInt("DOWNLOADER_WORKERS", 2)
	if err != nil {
		return DownloaderConfig{}, err
	}
	translationEnabled, err := getEnvBool("TRANSLATION_ENABLED", true)
	if err != nil {
		return DownloaderConfig{}, err
	}
	timeout, err := getEnvDuration("CATALOGUE_TIMEOUT", 60*time.Second)
	if err != nil {
		return DownloaderConfig{}, err
	}

	return DownloaderConfig{
		Redis:              redisCfg,
		Bus:                busCfg,
		WorkerCount:        workers,
		TranslationEnabled: translationEnabled,
		FallbackLanguage:   getEnv("FALLBACK_LANGUAGE", "en"),
		CatalogueBaseURL:   getEnv("CATALOGUE_BASE_URL", ""),
		CatalogueAPIKey:    getEnv("CATALOGUE_API_KEY", ""),
		CatalogueTimeout:   timeout,
	}, nil
}
