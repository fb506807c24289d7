// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package asana

import (
	"context"
	"net/url"
)

// Me calls GET /users/me. It is the cheapest way to check that a token works.
func (c *Client) Me(ctx context.Context) (*User, error) {
	q := url.Values{}
	q.Set("opt_fields", "gid,name,email,workspaces.gid,workspaces.name")

	var u User
	if _, err := c.get(ctx, "/users/me", q, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
