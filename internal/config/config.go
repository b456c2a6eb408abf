package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries everything main wires into the services. Values come from
// the environment; defaults are suitable for local development only.
type Config struct {
	Port string

	MongoURI    string
	MongoDBName string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenLife    time.Duration
	RefreshTokenLife   time.Duration
	CookieMaxAge       time.Duration

	// WebDomain is the front-end origin embedded in verification links.
	WebDomain string

	BrevoAPIKey       string
	AdminEmailName    string
	AdminEmailAddress string

	UseEmailReputation  bool
	AbstractEmailAPIKey string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// TwoFAIssuer is the label shown in authenticator apps.
	TwoFAIssuer string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8017"),

		MongoURI:    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGODB_DB_NAME", "trello-web"),

		AccessTokenSecret:  getEnv("ACCESS_TOKEN_SECRET_SIGNATURE", "dev-access-secret-please-change"),
		RefreshTokenSecret: getEnv("REFRESH_TOKEN_SECRET_SIGNATURE", "dev-refresh-secret-please-change"),
		AccessTokenLife:    getEnvDuration("ACCESS_TOKEN_LIFE", time.Hour),
		RefreshTokenLife:   getEnvDuration("REFRESH_TOKEN_LIFE", 7*24*time.Hour),
		CookieMaxAge:       7 * 24 * time.Hour,

		WebDomain: getEnv("WEB_DOMAIN", "http://localhost:5173"),

		BrevoAPIKey:       os.Getenv("BREVO_API_KEY"),
		AdminEmailName:    getEnv("ADMIN_EMAIL_NAME", "TrelloWeb"),
		AdminEmailAddress: getEnv("ADMIN_EMAIL_ADDRESS", "no-reply@trello-web.dev"),

		UseEmailReputation:  os.Getenv("USE_EMAIL_REPUTATION") == "true",
		AbstractEmailAPIKey: os.Getenv("ABSTRACT_EMAIL_API_KEY"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

		TwoFAIssuer: getEnv("TWO_FA_ISSUER", "TRELLO-WEB-2FA"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvDuration accepts either a Go duration string ("15m") or a plain
// number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
