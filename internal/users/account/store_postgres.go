// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account (Postgres) implements the storage layer for account administration.

It reads and writes only the public columns of users.account; credential
columns are owned by the auth package.

# Schema Table Mapping
  - users.account: Identity and profile data.
  - users.session: Removed by ON DELETE CASCADE when an account is deleted.
*/
package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/saas-starter/internal/platform/database/schema"
	"github.com/taibuivan/saas-starter/internal/platform/dberr"
	"github.com/taibuivan/saas-starter/internal/platform/postgres"
	"github.com/taibuivan/saas-starter/internal/platform/sec"
	"github.com/taibuivan/saas-starter/internal/users/auth"
	"github.com/taibuivan/saas-starter/pkg/query"
	"github.com/taibuivan/saas-starter/pkg/slice"
)

var (
	accountTable  = schema.UserAccount
	publicColumns = strings.Join(accountTable.PublicColumns(), ", ")
)

func scanView(row pgx.Row) (*auth.AccountView, error) {
	view := &auth.AccountView{}
	err := row.Scan(
		&view.ID,
		&view.Email,
		&view.FirstName,
		&view.LastName,
		&view.Role,
		&view.IsActive,
		&view.EmailVerified,
		&view.CreatedAt,
		&view.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// # Repository Implementation

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db postgres.DBTX
}

// NewRepository creates a new Postgres implementation for account administration.
func NewRepository(db postgres.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// conditions translates the filter into a WHERE clause.
func conditions(filter ListFilter) *query.Conditions {
	where := &query.Conditions{}

	if len(filter.Roles) > 0 {
		roles := slice.Map(filter.Roles, func(role sec.UserRole) string { return string(role) })
		where.Add(accountTable.Role+" = ANY(?)", roles)
	}

	return where
}

/*
List retrieves one page of accounts ordered by creation time, newest first.

Parameters:
  - context: context.Context
  - filter: ListFilter (Roles, Page, Limit)

Returns:
  - []*auth.AccountView: Page content
  - int: Total matching rows
  - error: Execution failures
*/
func (repository *PostgresRepository) List(context context.Context, filter ListFilter) ([]*auth.AccountView, int, error) {

	// 1. Count the full result set
	countWhere := conditions(filter)
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, accountTable.Table, countWhere.Where())

	var total int
	if err := repository.db.QueryRow(context, countQuery, countWhere.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_account_admin_repo_count_failed: %w", err)
	}

	// 2. Fetch the requested page
	pageWhere := conditions(filter)
	pageQuery := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s DESC, %s LIMIT %s OFFSET %s`,
		publicColumns, accountTable.Table, pageWhere.Where(),
		accountTable.CreatedAt, accountTable.ID,
		pageWhere.Next(filter.Limit), pageWhere.Next(filter.Offset()),
	)

	rows, err := repository.db.Query(context, pageQuery, pageWhere.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_account_admin_repo_list_failed: %w", err)
	}
	defer rows.Close()

	accounts := []*auth.AccountView{}
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_account_admin_repo_scan_failed: %w", err)
		}
		accounts = append(accounts, view)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_account_admin_repo_rows_failed: %w", err)
	}

	return accounts, total, nil
}

// FindByID resolves the public projection of an account.
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*auth.AccountView, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		publicColumns, accountTable.Table, accountTable.ID,
	)

	view, err := scanView(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, fmt.Errorf("postgres_account_admin_repo_find_failed: %w", dberr.Classify(err))
	}
	return view, nil
}

/*
Update writes the profile fields of an account.

Parameters:
  - context: context.Context
  - id: string
  - changes: Changes (already merged with the current values)

Returns:
  - *auth.AccountView: Stored record after the update
  - error: dberr.ErrNotFound, dberr.ErrUniqueViolation or execution errors
*/
func (repository *PostgresRepository) Update(context context.Context, id string, changes Changes) (*auth.AccountView, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5
		WHERE %s = $1
		RETURNING %s`,
		accountTable.Table,
		accountTable.FirstName, accountTable.LastName, accountTable.Email, accountTable.UpdatedAt,
		accountTable.ID,
		publicColumns,
	)

	view, err := scanView(repository.db.QueryRow(context, query,
		id, changes.FirstName, changes.LastName, changes.Email, changes.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("postgres_account_admin_repo_update_failed: %w", dberr.Classify(err))
	}
	return view, nil
}

// Delete removes an account row.
func (repository *PostgresRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, accountTable.Table, accountTable.ID)

	tag, err := repository.db.Exec(context, query, id)
	if err != nil {
		return fmt.Errorf("postgres_account_admin_repo_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres_account_admin_repo_delete_failed: %w", dberr.ErrNotFound)
	}
	return nil
}
