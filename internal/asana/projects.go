// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package asana

import (
	"context"
	"net/url"
)

// FindProjectByID calls GET /projects/{gid}. When fields is empty ProjectFields is used.
func (c *Client) FindProjectByID(ctx context.Context, projectID string, fields []string) (*Project, error) {
	if len(fields) == 0 {
		fields = ProjectFields
	}
	q := url.Values{}
	q.Set("opt_fields", optFields(fields))

	var p Project
	if _, err := c.get(ctx, "/projects/"+url.PathEscape(projectID), q, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindTasksByProject calls GET /projects/{gid}/tasks and follows every page.
func (c *Client) FindTasksByProject(ctx context.Context, projectID string, fields []string) ([]Task, error) {
	return c.collect(ctx, "/projects/"+url.PathEscape(projectID)+"/tasks", fields)
}

// FindSubtasks calls GET /tasks/{gid}/subtasks and follows every page.
func (c *Client) FindSubtasks(ctx context.Context, taskID string, fields []string) ([]Task, error) {
	return c.collect(ctx, "/tasks/"+url.PathEscape(taskID)+"/subtasks", fields)
}
