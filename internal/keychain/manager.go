// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores the CLI's secrets in the OS credential store: the
// Asana personal access token, the cached identity of its owner, and the
// database DSN.
//
// macOS uses the Keychain (falling back to pass), Windows the Credential Manager,
// and Linux the Secret Service, KWallet or pass, whichever is available.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

var (
	globalManager *Manager
	mu            sync.Mutex
)

// ServiceName identifies our credential store namespace.
const ServiceName = "asana2sql"

// Keys used for storing secrets.
const (
	KeyAccessToken = "asana_access_token"
	KeyAuthState   = "auth_state"
	KeyDBDSN       = "db_dsn"
)

// ErrNotFound is returned when a secret has not been stored.
var ErrNotFound = errors.New("secret not found in keychain")

// Manager provides thread-safe access to the credential store.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewManager opens the OS credential store.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

// NewManagerWithRing wraps an already opened keyring.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the process-wide manager, opening it on first use. A
// failed open is retried on the next call.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return globalManager, nil
}

func allowedBackends() []keyring.BackendType {
	switch runtime.GOOS {
	case "darwin":
		// pass needs: brew install pass gnupg
		return []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		return []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		return []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil
	}
}

// openRing opens the native credential store. There is no file fallback.
func openRing() (keyring.Keyring, error) {
	backends := allowedBackends()
	if len(backends) == 0 {
		return nil, errors.New("secure storage not supported on " + runtime.GOOS)
	}

	cfg := keyring.Config{
		ServiceName:             ServiceName,
		AllowedBackends:         backends,
		PassPrefix:              ServiceName,
		WinCredPrefix:           ServiceName,
		KWalletAppID:            ServiceName,
		KWalletFolder:           ServiceName,
		LibSecretCollectionName: "login",
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. Install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}
	return ring, nil
}

func (m *Manager) set(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Set(keyring.Item{Key: key, Data: data, Label: ServiceName + " " + key})
}

func (m *Manager) get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, err := m.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(it.Data) == 0 {
		return nil, ErrNotFound
	}
	return it.Data, nil
}

func (m *Manager) remove(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if err := m.ring.Remove(k); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			return err
		}
	}
	return nil
}

// SaveAccessToken stores the Asana personal access token.
func (m *Manager) SaveAccessToken(token string) error {
	if token == "" {
		return errors.New("empty access token")
	}
	return m.set(KeyAccessToken, []byte(token))
}

// LoadAccessToken returns the stored token or ErrNotFound.
func (m *Manager) LoadAccessToken() (string, error) {
	b, err := m.get(KeyAccessToken)
	return string(b), err
}

// SaveAuthState stores serialized identity state.
func (m *Manager) SaveAuthState(data []byte) error { return m.set(KeyAuthState, data) }

// LoadAuthState returns serialized identity state or ErrNotFound.
func (m *Manager) LoadAuthState() ([]byte, error) { return m.get(KeyAuthState) }

// ClearAuth removes the token and identity state.
func (m *Manager) ClearAuth() error { return m.remove(KeyAccessToken, KeyAuthState) }

// SaveDBDSN stores the database DSN.
func (m *Manager) SaveDBDSN(dsn string) error { return m.set(KeyDBDSN, []byte(dsn)) }

// LoadDBDSN returns the stored DSN or ErrNotFound.
func (m *Manager) LoadDBDSN() (string, error) {
	b, err := m.get(KeyDBDSN)
	return string(b), err
}

// ClearDB removes the stored DSN.
func (m *Manager) ClearDB() error { return m.remove(KeyDBDSN) }

// ClearAll removes every secret.
func (m *Manager) ClearAll() error { return m.remove(KeyAccessToken, KeyAuthState, KeyDBDSN) }
