package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert payout: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation})
	fk := fmt.Errorf("insert commission: %w", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})
	badUUID := &pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(errors.New("plain")))
	assert.True(t, IsInvalidTextRepresentation(badUUID))
}
