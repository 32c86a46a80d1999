// Package config loads typed configuration from environment variables.
//
// Structs describe their variables with github.com/caarlos0/env tags. Load
// reads ./.env when present (or the files passed with WithEnvFiles) through
// github.com/joho/godotenv without touching the process environment; variables
// already set in the environment take precedence over file values.
//
//	type Config struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	cfg, err := config.Load[Config]()
package config
