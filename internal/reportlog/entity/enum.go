package entity

import "strings"

type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelDebug Level = "DEBUG"
)

func (l Level) Valid() bool {
	switch l {
	case LevelInfo, LevelWarn, LevelError, LevelDebug:
		return true
	default:
		return false
	}
}

// ParseLevel accepts any letter case and reports false for unknown levels.
func ParseLevel(s string) (Level, bool) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	return l, l.Valid()
}

type Ambient string

const (
	AmbientDevelopment Ambient = "development"
	AmbientStaging     Ambient = "staging"
	AmbientProduction  Ambient = "production"
)

func (a Ambient) Valid() bool {
	switch a {
	case AmbientDevelopment, AmbientStaging, AmbientProduction:
		return true
	default:
		return false
	}
}

type CredentialState string

const (
	CredentialUninitialized CredentialState = "UNINITIALIZED"
	CredentialInitializing  CredentialState = "INITIALIZING"
	CredentialReady         CredentialState = "READY"
	CredentialDegraded      CredentialState = "DEGRADED"
)

// Ready reports whether sends may proceed. DEGRADED counts: requests go out
// with placeholder credentials and are rejected by the remote service.
func (s CredentialState) Ready() bool {
	return s == CredentialReady || s == CredentialDegraded
}
