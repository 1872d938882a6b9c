package config

import "time"

// AuditConfig configures the optional durable Postgres audit trail.
// AUDIT_ENABLED defaults to false: most deployments rely solely on the
// job store's bounded TTL and don't need long-horizon retention.
type AuditConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LoadAuditConfig reads audit-store configuration from the environment.
// The second return value reports whether the audit trail is enabled at all.
func LoadAuditConfig() (AuditConfig, bool, error) {
	enabled, err := getEnvBool("AUDIT_ENABLED", false)
	if err != nil {
		return AuditConfig{}, false, err
	}
	if !enabled {
		return AuditConfig{}, false, nil
	}

	port, err := getEnvInt("AUDIT_DB_PORT", 5432)
	if err != nil {
		return AuditConfig{}, false, err
	}
	maxOpen, err := getEnvInt("AUDIT_DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return AuditConfig{}, false, err
	}
	maxIdle, err := getEnvInt("AUDIT_DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return AuditConfig{}, false, err
	}
	connLifetime, err := getEnvDuration("AUDIT_DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return AuditConfig{}, false, err
	}

	return AuditConfig{
		Host:            getEnv("AUDIT_DB_HOST", "localhost"),
		Port:            port,
		User:            getEnv("AUDIT_DB_USER", "subtitlebus"),
		Password:        getEnv("AUDIT_DB_PASSWORD", ""),
		Database:        getEnv("AUDIT_DB_NAME", "subtitlebus_audit"),
		SSLMode:         getEnv("AUDIT_DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: connLifetime,
	}, true, nil
}
