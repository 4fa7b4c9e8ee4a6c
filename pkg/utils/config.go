package utils

import (
	"os"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("ANIMEHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("ANIMEHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "animehub"
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: 24 * time.Hour,
	}
}

// ScheduleConfig carries the four cron expressions for the background sweeps
// plus the fixed delay inserted between external catalog calls. The delay is
// a throttle against the catalog's rate limits, not tunable per item.
type ScheduleConfig struct {
	AnimeCron  string
	MangaCron  string
	AiringCron string
	RepairCron string
	SweepDelay time.Duration
}

func LoadScheduleConfig() ScheduleConfig {
	cfg := ScheduleConfig{
		AnimeCron:  envOr("ANIMEHUB_CRON_ANIME", "0 */6 * * *"),
		MangaCron:  envOr("ANIMEHUB_CRON_MANGA", "30 */6 * * *"),
		AiringCron: envOr("ANIMEHUB_CRON_AIRING", "*/30 * * * *"),
		RepairCron: envOr("ANIMEHUB_CRON_REPAIR", "0 4 * * *"),
		SweepDelay: 2 * time.Second,
	}

	if raw := os.Getenv("ANIMEHUB_SWEEP_DELAY"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
			cfg.SweepDelay = d
		}
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
