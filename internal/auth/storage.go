// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"encoding/json"
	"errors"

	"asana2sql/cli/internal/keychain"
)

// Store is the secret storage the Service persists to.
type Store interface {
	SaveAccessToken(token string) error
	LoadAccessToken() (string, error)
	SaveAuthState(data []byte) error
	LoadAuthState() ([]byte, error)
	ClearAuth() error
}

// State is the identity cached at login, used by whoami when the API is
// unreachable.
type State struct {
	LoggedIn   bool     `json:"logged_in"`
	UserGID    string   `json:"user_gid"`
	Account    string   `json:"account"`
	Email      string   `json:"email,omitempty"`
	Workspaces []string `json:"workspaces,omitempty"`
}

// loadState reads the cached state. Missing state yields the zero value.
func loadState(s Store) (State, error) {
	var st State
	data, err := s.LoadAuthState()
	if errors.Is(err, keychain.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, err
	}
	return st, nil
}

func saveState(s Store, st State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return s.SaveAuthState(b)
}
