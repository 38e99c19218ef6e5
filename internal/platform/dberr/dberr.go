// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned by stores when a queried row doesn't exist
	// or a conditional update matched nothing.
	ErrNotFound = errors.New("dberr: not found")

	// ErrUniqueViolation is returned when an insert or update hits a unique index.
	ErrUniqueViolation = errors.New("dberr: unique violation")
)

// Classify maps driver errors onto the sentinel values above. Errors it does
// not recognise are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	if IsUniqueViolation(err) {
		return errors.Join(ErrUniqueViolation, err)
	}

	return err
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
