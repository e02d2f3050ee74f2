package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassifiers(t *testing.T) {
	dup := fmt.Errorf("insert webhook event: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_webhook_events_provider_event"})
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, IsDuplicateKeyError(dup))
	assert.False(t, IsDuplicateKeyError(fk))
	assert.False(t, IsDuplicateKeyError(errors.New("23505")))
	assert.False(t, IsDuplicateKeyError(nil))

	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(dup))

	assert.True(t, isNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)))
	assert.False(t, isNoRows(errors.New("no rows")))
}
