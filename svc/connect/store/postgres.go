package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/oauthlink/pkg/oauth"
	"github.com/dmitrymomot/oauthlink/pkg/pg"
	"github.com/dmitrymomot/oauthlink/svc/connect"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// idTypes are the id column types the parameter may be cast to.
var idTypes = map[string]string{
	"uuid":    "uuid",
	"text":    "text",
	"varchar": "varchar",
	"bigint":  "bigint",
	"int8":    "bigint",
	"integer": "integer",
	"int":     "integer",
	"int4":    "integer",
}

// Postgres is a Store over a host-owned users table and the oauth_accounts table.
// Identifiers come from Schema and are always quoted.
type Postgres struct {
	db     DB
	schema Schema

	userColumns string
	connColumns string
}

var _ connect.Store = (*Postgres)(nil)

func NewPostgres(db DB, schema Schema) *Postgres {
	p := &Postgres{db: db, schema: schema}

	email := "''"
	if schema.HasEmailField() {
		email = fmt.Sprintf("COALESCE(%s::text, '')", ident(schema.EmailColumn))
	}
	password := "false"
	if schema.PasswordColumn != "" {
		pw := ident(schema.PasswordColumn)
		password = fmt.Sprintf("(%s IS NOT NULL AND %s::text <> '')", pw, pw)
	}
	p.userColumns = strings.Join([]string{
		ident(schema.IDColumn) + "::text",
		ident(schema.UsernameColumn) + "::text",
		email,
		password,
	}, ", ")
	p.connColumns = "provider, provider_user_id, user_id, provider_username, created_at"
	return p
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (p *Postgres) users() string {
	return ident(p.schema.UsersTable)
}

func (p *Postgres) connections() string {
	return ident(p.schema.ConnectionsTable)
}

// idMatch compares the id column with $1 cast to the column type, keeping the
// primary key index usable. Unknown types fall back to a text comparison.
func (p *Postgres) idMatch() string {
	if t, ok := idTypes[strings.ToLower(strings.TrimSpace(p.schema.IDType))]; ok {
		return fmt.Sprintf("%s = $1::%s", ident(p.schema.IDColumn), t)
	}
	return ident(p.schema.IDColumn) + "::text = $1"
}

func scanUser(row pgx.Row) (*connect.UserRecord, error) {
	var u connect.UserRecord
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HasPassword); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func scanConnection(row pgx.Row) (*connect.ConnectedAccount, error) {
	var c connect.ConnectedAccount
	var provider string
	if err := row.Scan(&provider, &c.ProviderUserID, &c.UserID, &c.ProviderUsername, &c.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	c.Provider = oauth.Provider(provider)
	return &c, nil
}

func mapError(err error) error {
	switch {
	case pg.IsNotFoundError(err), pg.IsInvalidInputError(err):
		return connect.ErrNotFound
	case pg.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", connect.ErrDuplicate, err)
	case pg.IsUndefinedColumnError(err):
		return oauth.NewError(oauth.KindConfiguration, "user schema does not match the database", err)
	default:
		return err
	}
}

// findUserByText matches username and email columns case-insensitively.
func (p *Postgres) findUserByText(ctx context.Context, column, value string) (*connect.UserRecord, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE lower(%s::text) = lower($1) LIMIT 1", p.userColumns, p.users(), ident(column))
	return scanUser(p.db.QueryRow(ctx, q, value))
}

func (p *Postgres) FindUserByID(ctx context.Context, id string) (*connect.UserRecord, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", p.userColumns, p.users(), p.idMatch())
	return scanUser(p.db.QueryRow(ctx, q, id))
}

func (p *Postgres) FindUserByUsername(ctx context.Context, username string) (*connect.UserRecord, error) {
	return p.findUserByText(ctx, p.schema.UsernameColumn, username)
}

// FindUserByEmail misses without querying when the schema has no email column.
func (p *Postgres) FindUserByEmail(ctx context.Context, email string) (*connect.UserRecord, error) {
	if !p.schema.HasEmailField() {
		return nil, connect.ErrNotFound
	}
	return p.findUserByText(ctx, p.schema.EmailColumn, email)
}

func (p *Postgres) CreateUser(ctx context.Context, u connect.NewUser) (*connect.UserRecord, error) {
	cols := []string{ident(p.schema.UsernameColumn)}
	args := []any{u.Username}
	if p.schema.HasEmailField() && u.Email != "" {
		cols = append(cols, ident(p.schema.EmailColumn))
		args = append(args, u.Email)
	}
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		p.users(), strings.Join(cols, ", "), strings.Join(placeholders, ", "), p.userColumns)
	return scanUser(p.db.QueryRow(ctx, q, args...))
}

// DeleteUser removes the user and its connections in one transaction. user_id
// carries no foreign key so host tables with any id type are supported.
func (p *Postgres) DeleteUser(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", p.connections()), id); err != nil {
			return fmt.Errorf("delete user connections: %w", err)
		}
		tag, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", p.users(), p.idMatch()), id)
		if err != nil {
			return mapError(err)
		}
		if tag.RowsAffected() == 0 {
			return connect.ErrNotFound
		}
		return nil
	})
}

func (p *Postgres) FindConnection(ctx context.Context, provider oauth.Provider, providerUserID string) (*connect.ConnectedAccount, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE provider = $1 AND provider_user_id = $2", p.connColumns, p.connections())
	return scanConnection(p.db.QueryRow(ctx, q, string(provider), providerUserID))
}

func (p *Postgres) ListConnections(ctx context.Context, userID string) ([]connect.ConnectedAccount, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at, provider", p.connColumns, p.connections())
	rows, err := p.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []connect.ConnectedAccount{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CreateConnection relies on the table's unique constraints, so concurrent links of
// the same provider identity resolve to exactly one winner and ErrDuplicate for the rest.
func (p *Postgres) CreateConnection(ctx context.Context, acc connect.ConnectedAccount) (*connect.ConnectedAccount, error) {
	q := fmt.Sprintf(
		"INSERT INTO %s (provider, provider_user_id, user_id, provider_username, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING %s",
		p.connections(), p.connColumns)
	return scanConnection(p.db.QueryRow(ctx, q,
		string(acc.Provider), acc.ProviderUserID, acc.UserID, acc.ProviderUsername, acc.CreatedAt))
}

func (p *Postgres) DeleteConnection(ctx context.Context, userID string, provider oauth.Provider) (*connect.ConnectedAccount, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE user_id = $1 AND provider = $2 RETURNING %s", p.connections(), p.connColumns)
	return scanConnection(p.db.QueryRow(ctx, q, userID, string(provider)))
}
