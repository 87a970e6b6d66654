package pkguid

import "github.com/google/uuid"

// UUID generates random (version 4) UUID strings.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new random UUID string.
func (u *UUID) Generate() string {
	return uuid.NewString()
}

// IsUUID reports whether v parses as a UUID of any version.
func IsUUID(v string) bool {
	if v == "" {
		return false
	}
	_, err := uuid.Parse(v)
	return err == nil
}
