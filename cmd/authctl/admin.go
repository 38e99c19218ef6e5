// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taibuivan/saas-starter/internal/platform/sec"
	"github.com/taibuivan/saas-starter/internal/platform/validate"
	"github.com/taibuivan/saas-starter/internal/users/auth"
)

type adminOptions struct {
	email     string
	password  string
	firstName string
	lastName  string
	role      string
}

// NewAdminCmd creates the admin command group.
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	cmd.AddCommand(newAdminCreateCmd())
	return cmd
}

func newAdminCreateCmd() *cobra.Command {
	opts := &adminOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a verified administrator account",
		Long: `Create an active account with a verified email and an administrative
role. No verification email is sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAdminCreate(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.email, "email", "", "account email")
	flags.StringVar(&opts.password, "password", "", "account password")
	flags.StringVar(&opts.firstName, "first-name", "Admin", "first name")
	flags.StringVar(&opts.lastName, "last-name", "User", "last name")
	flags.StringVar(&opts.role, "role", string(sec.RoleAdmin), "ADMIN or SUPER_ADMIN")

	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// validate applies the same rules as public registration, plus the role set.
func (opts *adminOptions) validate() error {
	v := &validate.Validator{}
	v.Required(auth.FieldEmail, opts.email).
		Email(auth.FieldEmail, opts.email).
		Password(auth.FieldPassword, opts.password).
		Required(auth.FieldFirstName, opts.firstName).
		MaxLen(auth.FieldFirstName, opts.firstName, auth.NameMaxLength).
		Required(auth.FieldLastName, opts.lastName).
		MaxLen(auth.FieldLastName, opts.lastName, auth.NameMaxLength).
		OneOf("role", opts.role, string(sec.RoleAdmin), string(sec.RoleSuperAdmin))
	return v.Err()
}

func runAdminCreate(cmd *cobra.Command, opts *adminOptions) error {
	if err := opts.validate(); err != nil {
		return fmt.Errorf("invalid admin account: %w", err)
	}

	cfg, logger, err := environment()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	service, pool, err := openAuthService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	account, err := service.Provision(ctx, auth.RegisterInput{
		Email:     opts.email,
		Password:  opts.password,
		FirstName: opts.firstName,
		LastName:  opts.lastName,
	}, sec.UserRole(opts.role))
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	cmd.Printf("Created %s account %s (%s)\n", account.Role, account.Email, account.ID)
	return nil
}
