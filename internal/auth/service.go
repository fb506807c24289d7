// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth manages the Asana personal access token: validating it against
// the API, storing it in the OS keychain, and resolving which token a command
// should use.
package auth

import (
	"context"
	"errors"
	"fmt"

	"asana2sql/cli/internal/asana"
	"asana2sql/cli/internal/keychain"
)

// ErrNoToken is returned when no token was passed and none is stored.
var ErrNoToken = errors.New("no Asana access token (pass --access-token, set ASANA2SQL_ASANA_ACCESS_TOKEN, or run `asana2sql login`)")

// Identity is the API call used to validate a token.
type Identity interface {
	Me(ctx context.Context) (*asana.User, error)
}

// ClientFactory builds an API client for a token.
type ClientFactory func(token string) Identity

// Service centralizes token operations against the API and the keychain.
type Service struct {
	store     Store
	newClient ClientFactory
}

// NewService returns a Service persisting to store.
func NewService(store Store, newClient ClientFactory) *Service {
	return &Service{store: store, newClient: newClient}
}

// Login validates token with GET /users/me and stores it together with the
// owner's identity.
func (s *Service) Login(ctx context.Context, token string) (*asana.User, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	me, err := s.newClient(token).Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	if err := s.store.SaveAccessToken(token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	st := State{LoggedIn: true, UserGID: me.GID, Account: me.Name, Email: me.Email}
	for _, w := range me.Workspaces {
		st.Workspaces = append(st.Workspaces, w.Name)
	}
	if err := saveState(s.store, st); err != nil {
		return nil, fmt.Errorf("store identity: %w", err)
	}
	return me, nil
}

// WhoAmI checks the stored token. An unauthorized token is cleared and reported
// as logged out; when the API is unreachable the cached identity is returned
// with online=false.
func (s *Service) WhoAmI(ctx context.Context) (st State, online bool, err error) {
	token, err := s.store.LoadAccessToken()
	if errors.Is(err, keychain.ErrNotFound) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}

	me, err := s.newClient(token).Me(ctx)
	switch {
	case err == nil:
		st = State{LoggedIn: true, UserGID: me.GID, Account: me.Name, Email: me.Email}
		for _, w := range me.Workspaces {
			st.Workspaces = append(st.Workspaces, w.Name)
		}
		return st, true, nil
	case errors.Is(err, asana.ErrUnauthorized):
		_ = s.store.ClearAuth()
		return State{}, true, nil
	default:
		cached, loadErr := loadState(s.store)
		if loadErr != nil {
			return State{}, false, err
		}
		return cached, false, nil
	}
}

// Logout removes the stored token and identity.
func (s *Service) Logout() error {
	return s.store.ClearAuth()
}

// ResolveToken returns explicit when set, otherwise the stored token.
func (s *Service) ResolveToken(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if s.store == nil {
		return "", ErrNoToken
	}
	token, err := s.store.LoadAccessToken()
	if errors.Is(err, keychain.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token from keychain: %w", err)
	}
	return token, nil
}
