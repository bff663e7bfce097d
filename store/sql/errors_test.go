package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-accountlink/core"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		integrity bool
		backing   bool
	}{
		{
			name:      "sqlite unique",
			err:       sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique},
			integrity: true,
		},
		{
			name:      "sqlite foreign key",
			err:       fmt.Errorf("insert link: %w", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}),
			integrity: true,
		},
		{
			name:      "postgres unique",
			err:       &pq.Error{Code: "23505"},
			integrity: true,
		},
		{
			name:      "postgres foreign key",
			err:       &pq.Error{Code: "23503"},
			integrity: true,
		},
		{
			name:    "sqlite busy",
			err:     sqlite3.Error{Code: sqlite3.ErrBusy},
			backing: true,
		},
		{
			name:    "context cancelled",
			err:     context.Canceled,
			backing: true,
		},
		{
			name:    "connection refused",
			err:     errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			backing: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyError("register_link", tc.err)
			if core.IsIntegrityViolation(got) != tc.integrity {
				t.Fatalf("integrity violation = %v, want %v (%v)", core.IsIntegrityViolation(got), tc.integrity, got)
			}
			if core.IsBackingStoreUnavailable(got) != tc.backing {
				t.Fatalf("backing store unavailable = %v, want %v (%v)", core.IsBackingStoreUnavailable(got), tc.backing, got)
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("expected classified error to wrap the cause")
			}
		})
	}
}

func TestClassifyError_PassesServiceErrorsThrough(t *testing.T) {
	notFound := core.NewNotFound("", "42")
	if got := classifyError("lookup_platform_user", notFound); got != notFound {
		t.Fatalf("expected service error to pass through unchanged, got %v", got)
	}
	if classifyError("noop", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
