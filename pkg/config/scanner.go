package config

import (
	"strings"
	"time"
)

// ScannerConfig configures the scanner service.
type ScannerConfig struct {
	Redis            RedisConfig
	Bus              BusConfig
	HTTPAddr         string
	MediaRoots       []string
	TargetLanguages  []string
	SyncInterval     time.Duration
	DebounceWindow   time.Duration
}

// LoadScannerConfig reads the scanner's configuration from the environment.
func LoadScannerConfig() (ScannerConfig, error) {
	redisCfg, err := LoadRedisConfig()
	if err != nil {
		return ScannerConfig{}, err
	}
	busCfg, err := LoadBusConfig()
	if err != nil {
		return ScannerConfig{}, err
	}
	syncInterval, err := getEnvDuration("SCAN_INTERVAL", time.Hour)
	if err != nil {
		return ScannerConfig{}, err
	}
	debounce, err := getEnvDuration("DEBOUNCE_WINDOW", 2*time.Second)
	if err != nil {
		return ScannerConfig{}, err
	}

	return ScannerConfig{
		Redis:           redisCfg,
		Bus:             busCfg,
		HTTPAddr:        getEnv("SCANNER_HTTP_ADDR", ":8081"),
		MediaRoots:      splitCSV(getEnv("MEDIA_ROOTS", "/media")),
		TargetLanguages: splitCSV(getEnv("TARGET_LANGUAGES", "en")),
		SyncInterval:    syncInterval,
		DebounceWindow:  debounce,
	}, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
