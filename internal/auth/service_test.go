// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"context"
	"errors"
	"testing"

	"asana2sql/cli/internal/asana"
	"asana2sql/cli/internal/keychain"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	user *asana.User
	err  error
}

func (f fakeIdentity) Me(context.Context) (*asana.User, error) { return f.user, f.err }

func newService(id fakeIdentity) (*Service, *keychain.Manager, *[]string) {
	store := keychain.NewManagerWithRing(keyring.NewArrayKeyring(nil))
	var tokens []string
	return NewService(store, func(token string) Identity {
		tokens = append(tokens, token)
		return id
	}), store, &tokens
}

func TestLogin_StoresTokenAndIdentity(t *testing.T) {
	me := &asana.User{GID: "7", Name: "Ana", Email: "ana@example.com", Workspaces: []asana.Ref{{GID: "1", Name: "Acme"}}}
	svc, store, tokens := newService(fakeIdentity{user: me})

	got, err := svc.Login(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, me, got)
	assert.Equal(t, []string{"tok"}, *tokens)

	tok, err := store.LoadAccessToken()
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	st, err := loadState(store)
	require.NoError(t, err)
	assert.Equal(t, State{LoggedIn: true, UserGID: "7", Account: "Ana", Email: "ana@example.com", Workspaces: []string{"Acme"}}, st)
}

func TestLogin_InvalidTokenIsNotStored(t *testing.T) {
	svc, store, _ := newService(fakeIdentity{err: &asana.APIError{Status: 401}})

	_, err := svc.Login(context.Background(), "bad")
	assert.ErrorIs(t, err, asana.ErrUnauthorized)
	_, err = store.LoadAccessToken()
	assert.ErrorIs(t, err, keychain.ErrNotFound)

	_, err = svc.Login(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestWhoAmI(t *testing.T) {
	ctx := context.Background()

	svc, _, _ := newService(fakeIdentity{})
	st, _, err := svc.WhoAmI(ctx)
	require.NoError(t, err)
	assert.False(t, st.LoggedIn, "nothing stored")

	me := &asana.User{GID: "7", Name: "Ana"}
	svc, store, _ := newService(fakeIdentity{user: me})
	_, err = svc.Login(ctx, "tok")
	require.NoError(t, err)

	svc.newClient = func(string) Identity { return fakeIdentity{err: errors.New("dial tcp: no route to host")} }
	st, online, err := svc.WhoAmI(ctx)
	require.NoError(t, err)
	assert.False(t, online)
	assert.Equal(t, "Ana", st.Account, "cached identity when offline")

	svc.newClient = func(string) Identity { return fakeIdentity{err: &asana.APIError{Status: 401}} }
	st, online, err = svc.WhoAmI(ctx)
	require.NoError(t, err)
	assert.True(t, online)
	assert.False(t, st.LoggedIn)
	_, err = store.LoadAccessToken()
	assert.ErrorIs(t, err, keychain.ErrNotFound, "revoked token is cleared")
}

func TestResolveToken(t *testing.T) {
	svc, store, _ := newService(fakeIdentity{})

	_, err := svc.ResolveToken("")
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.SaveAccessToken("stored"))
	tok, err := svc.ResolveToken("")
	require.NoError(t, err)
	assert.Equal(t, "stored", tok)

	tok, err = svc.ResolveToken("explicit")
	require.NoError(t, err)
	assert.Equal(t, "explicit", tok)

	tok, err = NewService(nil, nil).ResolveToken("explicit")
	require.NoError(t, err)
	assert.Equal(t, "explicit", tok)
}
