// Package repository defines the storage-level error contract shared by the
// persistence implementations.
package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write collides with existing state,
	// such as inserting a claim on a token that already holds one
	ErrConflict = errors.New("conflict: entity already exists")
)
