package client

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
)

const (
	DefaultAPIURL        = "http://localhost:3001"
	DefaultProjectName   = "default-project"
	DefaultTimeout       = 5 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
)

// Config describes how the client reaches the remote logging service.
//
// RetryAttempts and RetryDelay are validated but not used: the retry policy is
// the fixed MaxRetries loop on authentication failures.
type Config struct {
	APIURL        string
	ProjectName   string
	Ambient       entity.Ambient
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// Compress gzips /logs request bodies.
	Compress bool
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		APIURL:        DefaultAPIURL,
		ProjectName:   DefaultProjectName,
		Ambient:       entity.AmbientDevelopment,
		Timeout:       DefaultTimeout,
		RetryAttempts: DefaultRetryAttempts,
		RetryDelay:    DefaultRetryDelay,
	}
}

// Validate reports the first problem found, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.APIURL) == "":
		return fmt.Errorf("%w: apiUrl is required", ErrInvalidConfig)
	case strings.TrimSpace(c.ProjectName) == "":
		return fmt.Errorf("%w: projectName is required", ErrInvalidConfig)
	case c.Ambient == "":
		return fmt.Errorf("%w: ambient is required", ErrInvalidConfig)
	case !c.Ambient.Valid():
		return fmt.Errorf("%w: ambient must be one of development, staging, production", ErrInvalidConfig)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	case c.RetryAttempts < 0:
		return fmt.Errorf("%w: retryAttempts must not be negative", ErrInvalidConfig)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retryDelay must not be negative", ErrInvalidConfig)
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: apiUrl %q is not an absolute URL", ErrInvalidConfig, c.APIURL)
	}

	return nil
}

func (c Config) endpoint(path string) string {
	return strings.TrimRight(c.APIURL, "/") + path
}
