// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package asana is a small client for the parts of the Asana REST API that
// asana2sql reads: a project's metadata, its tasks, their sub-tasks, and the
// authenticated user. Responses are decoded liberally: tasks stay as generic
// JSON maps so that the field layer decides what to keep.
package asana

import "context"

// API defines the Asana operations the CLI depends on.
// Implementations may call the real HTTP API or provide fakes for tests.
type API interface {
	// FindProjectByID returns project metadata. A missing project yields an
	// error matching ErrNotFound.
	FindProjectByID(ctx context.Context, projectID string, fields []string) (*Project, error)
	// FindTasksByProject returns every top-level task of a project, following
	// pagination, with only the requested opt_fields populated.
	FindTasksByProject(ctx context.Context, projectID string, fields []string) ([]Task, error)
	// FindSubtasks returns the direct sub-tasks of a task.
	FindSubtasks(ctx context.Context, taskID string, fields []string) ([]Task, error)
	// Me returns the user owning the access token.
	Me(ctx context.Context) (*User, error)
	// NumRequests reports how many HTTP requests were issued.
	NumRequests() int
}
