package config

import "time"

// TranslatorConfig configures the translator service.
type TranslatorConfig struct {
	Redis              RedisConfig
	Bus                BusConfig
	WorkerCount        int
	ChunkSize          int
	CheckpointDir      string
	ResultBaseURL      string
	LLMProvider        string
	LLMAPIKey          string
	LLMModel           string
	LLMTimeout         time.Duration
}

// LoadTranslatorConfig reads the translator's configuration from the environment.
func LoadTranslatorConfig() (TranslatorConfig, error) {
	redisCfg, err := LoadRedisConfig()
	if err != nil {
		return TranslatorConfig{}, err
	}
	busCfg, err := LoadBusConfig()
	if err != nil {
		return TranslatorConfig{}, err
	}
	workers, err := getEnvInt("TRANSLATOR_WORKERS", 2)
	if err != nil {
		return TranslatorConfig{}, err
	}
	chunkSize, err := getEnvInt("TRANSLATION_CHUNK_SIZE", 50)
	if err != nil {
		return TranslatorConfig{}, err
	}
	timeout, err := getEnvDuration("LLM_TIMEOUT", 60*time.Second)
	if err != nil {
		return TranslatorConfig{}, err
	}

	return TranslatorConfig{
		Redis:         redisCfg,
		Bus:           busCfg,
		WorkerCount:   workers,
		ChunkSize:     chunkSize,
		CheckpointDir: getEnv("CHECKPOINT_DIR", "./data/checkpoints"),
		ResultBaseURL: getEnv("RESULT_BASE_URL", "file://"),
		LLMProvider:   getEnv("LLM_PROVIDER", "fake"),
		LLMAPIKey:     getEnv("LLM_API_KEY", ""),
		LLMModel:      getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:    timeout,
	}, nil
}
