// Package uuid generates the identifiers used as primary keys. Version 7
// UUIDs are time-ordered, which keeps index pages warm for append-heavy
// tables like transactions and generation logs.
package uuid

import googleuuid "github.com/google/uuid"

// New returns a new UUIDv7 string.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Random source exhausted; a v4 still satisfies uniqueness.
		return googleuuid.New().String()
	}
	return id.String()
}

// Parse validates a UUID string and returns its canonical form.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid reports whether s is a well-formed UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
