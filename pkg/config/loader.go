package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

type options struct {
	prefix      string
	files       []string
	environment map[string]string
}

// Option configures Load.
type Option func(*options)

// WithPrefix only reads variables starting with prefix; struct tags omit it.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvFiles reads the given dotenv files instead of the optional ./.env.
// Listed files must exist.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.files = append(o.files, files...) }
}

// WithEnvironment replaces the process environment, mostly for tests.
func WithEnvironment(vars map[string]string) Option {
	return func(o *options) { o.environment = vars }
}

// Load parses environment variables into a new T based on its env tags.
// Values from dotenv files never override variables already set.
//
// Example:
//
//	type DatabaseConfig struct {
//		ConnectionString string `env:"DATABASE_URL,required"`
//		MaxConns         int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
//	}
//
//	cfg, err := config.Load[DatabaseConfig]()
func Load[T any](opts ...Option) (T, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	vars, err := o.vars()
	if err != nil {
		var zero T
		return zero, err
	}

	cfg, err := env.ParseAsWithOptions[T](env.Options{
		Prefix:      o.prefix,
		Environment: vars,
	})
	if err != nil {
		var zero T
		return zero, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// MustLoad works like Load but panics if configuration loading fails.
// Use it for configuration the application cannot start without.
func MustLoad[T any](opts ...Option) T {
	cfg, err := Load[T](opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
	return cfg
}

// vars merges dotenv files under the process (or injected) environment.
func (o *options) vars() (map[string]string, error) {
	base := o.environment
	if base == nil {
		base = osEnvironment()
	}

	files := o.files
	optional := len(files) == 0
	if optional {
		files = []string{defaultEnvFile}
	}

	fromFiles, err := godotenv.Read(files...)
	switch {
	case err != nil && optional && errors.Is(err, fs.ErrNotExist):
		return base, nil
	case err != nil:
		return nil, errors.Join(ErrEnvFile, err)
	}

	for k, v := range base {
		fromFiles[k] = v
	}
	return fromFiles, nil
}

func osEnvironment() map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars
}
