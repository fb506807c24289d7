package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestE_Error(t *testing.T) {
	cause := stderrors.New("connection refused")

	assert.Equal(t, "database_failed: open database: connection refused",
		Wrap(DatabaseFailed, "open database", cause).Error())
	assert.Equal(t, "config_invalid: project id is required",
		New(ConfigInvalid, "project id is required").Error())
}

func TestE_UnwrapKeepsCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := fmt.Errorf("synchronize: %w", Wrap(RemoteFailed, "fetch tasks", cause))

	assert.True(t, stderrors.Is(err, cause))

	var e *E
	assert.True(t, stderrors.As(err, &e))
	assert.Equal(t, RemoteFailed, e.Kind)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: stderrors.New("x"), want: ""},
		{name: "direct", err: New(ProjectNotFound, "x"), want: ProjectNotFound},
		{name: "wrapped", err: fmt.Errorf("run: %w", New(DatabaseFailed, "x")), want: DatabaseFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
