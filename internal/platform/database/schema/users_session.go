// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserSessionTable represents the 'users.session' table
type UserSessionTable struct {
	Table     string
	ID        string
	UserID    string
	TokenHash string
	UserAgent string
	IPAddress string
	ExpiresAt string
	CreatedAt string
}

// UserSession is the schema definition for users.session
var UserSession = UserSessionTable{
	Table:     "users.session",
	ID:        "id",
	UserID:    "userid",
	TokenHash: "tokenhash",
	UserAgent: "useragent",
	IPAddress: "ipaddress",
	ExpiresAt: "expiresat",
	CreatedAt: "createdat",
}
