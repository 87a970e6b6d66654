package client

import (
	"context"
	"encoding/hex"
	"log/slog"
	"sync"

	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

type provisionFunc func(ctx context.Context) (entity.Credentials, error)

// credentialManager owns the key pair shared by every send of one client.
//
// Provisioning starts once, in the background; callers wait on ready. Every
// later mutation goes through refresh, which singleflight coalesces so that
// concurrent callers share one provisioning call.
type credentialManager struct {
	provision provisionFunc

	mu         sync.RWMutex
	creds      entity.Credentials
	state      entity.CredentialState
	refreshing bool

	initOnce sync.Once
	ready    chan struct{}
	group    singleflight.Group
}

func newCredentialManager(provision provisionFunc) *credentialManager {
	return &credentialManager{
		provision: provision,
		state:     entity.CredentialUninitialized,
		ready:     make(chan struct{}),
	}
}

// start moves UNINITIALIZED to INITIALIZING and hands the provisioning call to
// spawn. Later calls do nothing.
func (m *credentialManager) start(ctx context.Context, spawn func(ctx context.Context, f func(ctx context.Context) error)) {
	m.initOnce.Do(func() {
		m.mu.Lock()
		m.state = entity.CredentialInitializing
		m.mu.Unlock()

		spawn(ctx, m.initialize)
	})
}

// initialize never leaves ready open: a failed call degrades to placeholder
// credentials, requests then go out and the remote service rejects them.
func (m *credentialManager) initialize(ctx context.Context) error {
	defer close(m.ready)

	creds, err := m.provision(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.creds = entity.Credentials{Key: entity.PlaceholderKey, Secret: entity.PlaceholderSecret}
		m.state = entity.CredentialDegraded
		slog.WarnContext(ctx, "reportlog: provisioning failed, running with placeholder credentials", "error", err)
		return nil
	}

	m.creds = creds
	m.state = entity.CredentialReady
	slog.InfoContext(ctx, "reportlog: credentials provisioned", "key_fp", fingerprint(creds.Key))
	return nil
}

// wait blocks until initialization has finished or ctx is done.
func (m *credentialManager) wait(ctx context.Context) (entity.Credentials, error) {
	select {
	case <-m.ready:
	case <-ctx.Done():
		return entity.Credentials{}, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds, nil
}

// refresh rotates the key pair the caller last used. When another caller has
// already replaced from, the newer pair is returned without a new call.
// Concurrent callers share one in-flight provisioning call and its result.
func (m *credentialManager) refresh(ctx context.Context, from entity.Credentials) (entity.Credentials, error) {
	if _, err := m.wait(ctx); err != nil {
		return entity.Credentials{}, err
	}

	v, err, _ := m.group.Do("refresh", func() (any, error) {
		m.mu.Lock()
		if m.creds != from {
			current := m.creds
			m.mu.Unlock()
			return current, nil
		}
		m.refreshing = true
		m.mu.Unlock()

		defer func() {
			m.mu.Lock()
			m.refreshing = false
			m.mu.Unlock()
		}()

		// The flight outlives any single caller.
		creds, err := m.provision(context.WithoutCancel(ctx))
		if err != nil {
			return entity.Credentials{}, err
		}

		m.mu.Lock()
		m.creds = creds
		m.state = entity.CredentialReady
		m.mu.Unlock()

		slog.InfoContext(ctx, "reportlog: credentials rotated", "key_fp", fingerprint(creds.Key))
		return creds, nil
	})
	if err != nil {
		return entity.Credentials{}, err
	}

	return v.(entity.Credentials), nil
}

func (m *credentialManager) current() entity.Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds
}

func (m *credentialManager) snapshot() (entity.CredentialState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.refreshing
}

// fingerprint identifies a key in local logs without printing it.
func fingerprint(key string) string {
	if key == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
