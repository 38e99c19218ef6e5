// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns of the users schema so that
// query builders never repeat string literals.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table                 string
	ID                    string
	Email                 string
	Password              string
	FirstName             string
	LastName              string
	Role                  string
	IsActive              string
	EmailVerified         string
	VerificationTokenHash string
	ResetTokenHash        string
	ResetTokenExpiresAt   string
	CreatedAt             string
	UpdatedAt             string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:                 "users.account",
	ID:                    "id",
	Email:                 "email",
	Password:              "passwordhash",
	FirstName:             "firstname",
	LastName:              "lastname",
	Role:                  "role",
	IsActive:              "isactive",
	EmailVerified:         "emailverified",
	VerificationTokenHash: "verificationtokenhash",
	ResetTokenHash:        "resettokenhash",
	ResetTokenExpiresAt:   "resettokenexpiresat",
	CreatedAt:             "createdat",
	UpdatedAt:             "updatedat",
}

// PublicColumns returns the non-secret columns, in the order [Account] scanners expect.
func (t UserAccountTable) PublicColumns() []string {
	return []string{
		t.ID, t.Email, t.FirstName, t.LastName, t.Role,
		t.IsActive, t.EmailVerified, t.CreatedAt, t.UpdatedAt,
	}
}
