// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/saas-starter/internal/platform/dberr"
)

func TestClassify(t *testing.T) {
	other := errors.New("connection reset")

	assert.NoError(t, dberr.Classify(nil))
	assert.ErrorIs(t, dberr.Classify(pgx.ErrNoRows), dberr.ErrNotFound)
	assert.ErrorIs(t, dberr.Classify(fmt.Errorf("scan: %w", pgx.ErrNoRows)), dberr.ErrNotFound)
	assert.Equal(t, other, dberr.Classify(other))

	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "account_email_key"}
	classified := dberr.Classify(unique)
	assert.ErrorIs(t, classified, dberr.ErrUniqueViolation)
	assert.True(t, dberr.IsUniqueViolation(classified))

	assert.False(t, dberr.IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
}
