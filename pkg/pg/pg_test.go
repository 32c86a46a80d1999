package pg_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/oauthlink/pkg/logger"
	"github.com/dmitrymomot/oauthlink/pkg/pg"
)

func TestErrorPredicates(t *testing.T) {
	t.Parallel()

	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}
	col := &pgconn.PgError{Code: "42703"}

	assert.True(t, pg.IsDuplicateKeyError(dup))
	assert.False(t, pg.IsDuplicateKeyError(fk))
	assert.False(t, pg.IsDuplicateKeyError(nil))

	assert.True(t, pg.IsUndefinedColumnError(col))
	assert.False(t, pg.IsUndefinedColumnError(fk))
	assert.True(t, pg.IsInvalidInputError(&pgconn.PgError{Code: "22P02"}))
	assert.False(t, pg.IsInvalidInputError(col))

	assert.True(t, pg.IsNotFoundError(fmt.Errorf("query: %w", pgx.ErrNoRows)))
	assert.False(t, pg.IsNotFoundError(nil))
	assert.False(t, pg.IsNotFoundError(errors.New("other")))
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	require.NoError(t, pg.Healthcheck(fakePinger{})(t.Context()))

	err := pg.Healthcheck(fakePinger{err: errors.New("down")})(t.Context())
	require.ErrorIs(t, err, pg.ErrHealthcheckFailed)
}

func TestConnect_EmptyConnectionString(t *testing.T) {
	t.Parallel()

	_, err := pg.Connect(t.Context(), pg.Config{})
	require.ErrorIs(t, err, pg.ErrEmptyConnectionString)
}

func TestMigrate_Preconditions(t *testing.T) {
	t.Parallel()

	err := pg.Migrate(t.Context(), nil, pg.Config{}, nil, "migrations", logger.Discard())
	require.ErrorIs(t, err, pg.ErrMigrationsNotProvided)

	err = pg.Migrate(t.Context(), nil, pg.Config{}, fstest.MapFS{}, "migrations", logger.Discard())
	require.ErrorIs(t, err, pg.ErrMigrationsDirNotFound)
}
