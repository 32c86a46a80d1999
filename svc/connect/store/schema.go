package store

import (
	"embed"

	"github.com/dmitrymomot/oauthlink/svc/connect"
)

// Migrations holds the goose migrations for the connections table and the
// sample users table. Pass it to pg.Migrate with MigrationsDir.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations holding the .sql files.
const MigrationsDir = "migrations"

// Schema maps the host user table onto the fields the engine needs. IDType is
// the SQL type of IDColumn: uuid, text, varchar, bigint or integer.
type Schema struct {
	UsersTable     string `env:"CONNECT_USERS_TABLE" envDefault:"users"`
	IDColumn       string `env:"CONNECT_USER_ID_COLUMN" envDefault:"id"`
	IDType         string `env:"CONNECT_USER_ID_TYPE" envDefault:"uuid"`
	UsernameColumn string `env:"CONNECT_USERNAME_COLUMN" envDefault:"email"`
	// EmailColumn is empty when users have no email field besides the username.
	EmailColumn    string `env:"CONNECT_EMAIL_COLUMN"`
	PasswordColumn string `env:"CONNECT_PASSWORD_COLUMN" envDefault:"hashed_password"`

	ConnectionsTable string `env:"CONNECT_CONNECTIONS_TABLE" envDefault:"oauth_accounts"`
}

// HasEmailField reports whether the schema stores email apart from the username.
func (s Schema) HasEmailField() bool {
	return s.EmailColumn != "" && s.EmailColumn != s.UsernameColumn
}

// ConnectConfig derives the orchestrator's schema description.
func (s Schema) ConnectConfig() connect.Config {
	return connect.Config{
		IdentityField: s.UsernameColumn,
		HasEmailField: s.HasEmailField(),
	}
}
