// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid provides time-ordered identifiers for accounts and sessions.

Version 7 values sort by creation time, which keeps the primary-key B-tree of
users.account and users.session append-mostly.
*/
package uuid

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
func New() string {
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}

	return id.String()
}
