// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package keychain

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManagerWithRing(keyring.NewArrayKeyring(nil))

	if _, err := m.LoadAccessToken(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadAccessToken() error = %v, want ErrNotFound", err)
	}
	if err := m.SaveAccessToken(""); err == nil {
		t.Fatal("SaveAccessToken(\"\") should fail")
	}

	if err := m.SaveAccessToken("2/123/456:abc"); err != nil {
		t.Fatal(err)
	}
	if err := m.SaveDBDSN("sqlite://tasks.db"); err != nil {
		t.Fatal(err)
	}

	tok, err := m.LoadAccessToken()
	if err != nil || tok != "2/123/456:abc" {
		t.Fatalf("LoadAccessToken() = %q, %v", tok, err)
	}

	if err := m.ClearAuth(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.LoadAccessToken(); !errors.Is(err, ErrNotFound) {
		t.Errorf("token survived ClearAuth: %v", err)
	}
	if dsn, err := m.LoadDBDSN(); err != nil || dsn != "sqlite://tasks.db" {
		t.Errorf("LoadDBDSN() = %q, %v", dsn, err)
	}

	if err := m.ClearAll(); err != nil {
		t.Fatal(err)
	}
	if err := m.ClearAll(); err != nil {
		t.Errorf("ClearAll on empty keychain: %v", err)
	}
}
