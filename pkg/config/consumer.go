package config

// ConsumerConfig configures the consumer (status projector) service.
type ConsumerConfig struct {
	Redis        RedisConfig
	Bus          BusConfig
	HTTPAddr     string
	Audit        AuditConfig
	AuditEnabled bool
}

// LoadConsumerConfig reads the consumer's configuration from the environment.
func LoadConsumerConfig() (ConsumerConfig, error) {
	redisCfg, err := LoadRedisConfig()
	if err != nil {
		return ConsumerConfig{}, err
	}
	busCfg, err := LoadBusConfig()
	if err != nil {
		return ConsumerConfig{}, err
	}
	auditCfg, auditEnabled, err := LoadAuditConfig()
	if err != nil {
		return ConsumerConfig{}, err
	}
	if !auditEnabled {
		auditCfg = AuditConfig{}
	}

	return ConsumerConfig{
		Redis:        redisCfg,
		Bus:          busCfg,
		HTTPAddr:     getEnv("CONSUMER_HTTP_ADDR", ":8082"),
		Audit:        auditCfg,
		AuditEnabled: auditEnabled,
	}, nil
}
