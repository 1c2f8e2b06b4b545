// Package id provides unique identifier generation for jobs.
package id

import "github.com/google/uuid"

// Generate creates a new unique job ID as a random (v4) UUID.
// Example: 9b2f6c1e-3f4a-4d8e-9a57-0c1d2e3f4a5b
func Generate() string {
	return uuid.NewString()
}

// Valid reports whether s has the shape of an ID produced by Generate.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
