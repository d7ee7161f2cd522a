package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var envBindings = map[string]string{
	"server.port": "PORT",
	"log.level":   "LOG_LEVEL",
	"log.pretty":  "LOG_PRETTY",

	"database.url":          "DATABASE_URL",
	"database.lock_timeout": "DATABASE_LOCK_TIMEOUT",
	"database.host":         "DATABASE_HOST",
	"database.port":         "DATABASE_PORT",
	"database.user":         "DATABASE_USER",
	"database.password":     "DATABASE_PASSWORD",
	"database.name":         "DATABASE_NAME",
	"database.ssl_mode":     "DATABASE_SSL_MODE",
	"database.migrate":      "DATABASE_MIGRATE",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"jwt.secret_key":   "JWT_SECRET_KEY",
	"jwt.expiry_hours": "JWT_EXPIRY_HOURS",

	"argon2.time":        "ARGON2_TIME",
	"argon2.memory":      "ARGON2_MEMORY",
	"argon2.threads":     "ARGON2_THREADS",
	"argon2.key_length":  "ARGON2_KEY_LENGTH",
	"argon2.salt_length": "ARGON2_SALT_LENGTH",

	"allocation.lock_expiry": "ALLOCATION_LOCK_EXPIRY",
	"allocation.lock_tries":  "ALLOCATION_LOCK_TRIES",

	"superuser.email":    "FIRST_SUPERUSER_EMAIL",
	"superuser.password": "FIRST_SUPERUSER_PASSWORD",
}

// SetDefaults registers the default value of every known key.
func SetDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.pretty", false)

	viper.SetDefault("database.migrate", true)

	viper.SetDefault("jwt.secret_key", "SECRET")
	viper.SetDefault("jwt.expiry_hours", 1)

	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	viper.SetDefault("allocation.lock_expiry", 30*time.Second)
	viper.SetDefault("allocation.lock_tries", 32)
}

// Load reads the .env file at path (if present) into the environment, binds
// environment variables and installs defaults. Variables already set in the
// environment win over the file.
func Load(path string) {
	if err := godotenv.Load(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Config file not found, using environment and defaults")
	}

	viper.AutomaticEnv()
	for key, env := range envBindings {
		viper.BindEnv(key, env)
	}
	SetDefaults()
}

type AllocationConfig struct {
	LockExpiry time.Duration
	LockTries  int
}

func LoadAllocationConfig() *AllocationConfig {
	return &AllocationConfig{
		LockExpiry: viper.GetDuration("allocation.lock_expiry"),
		LockTries:  viper.GetInt("allocation.lock_tries"),
	}
}

// SuperuserConfig is the account created at startup when both fields are set.
type SuperuserConfig struct {
	Email    string
	Password string
}

func LoadSuperuserConfig() *SuperuserConfig {
	return &SuperuserConfig{
		Email:    viper.GetString("superuser.email"),
		Password: viper.GetString("superuser.password"),
	}
}

// Enabled reports whether a bootstrap superuser is configured.
func (c *SuperuserConfig) Enabled() bool {
	return c.Email != "" && c.Password != ""
}

type ServerConfig struct {
	Port      string
	LogLevel  string
	LogPretty bool
	Migrate   bool
}

func LoadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:      viper.GetString("server.port"),
		LogLevel:  viper.GetString("log.level"),
		LogPretty: viper.GetBool("log.pretty"),
		Migrate:   viper.GetBool("database.migrate"),
	}
}
