// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost matches bcrypt cost 12.
const DefaultHashCost = 12

// ErrPasswordTooLong is returned by [BcryptHasher.Hash] for passwords longer
// than bcrypt's 72-byte input limit.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(plainTextPassword string) (string, error)
	Verify(plainTextPassword, existingHash string) bool
}

// BcryptHasher implements [PasswordHasher] with a tunable bcrypt cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, falling back to
// [DefaultHashCost] when cost is outside bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost returns the configured work factor.
func (hasher *BcryptHasher) Cost() int {
	return hasher.cost
}

// Hash hashes a plain-text password using the bcrypt algorithm.
func (hasher *BcryptHasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), hasher.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify compares a plain-text password with its hashed version.
// bcrypt compares digests in constant time.
func (hasher *BcryptHasher) Verify(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
