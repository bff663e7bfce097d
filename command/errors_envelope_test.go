package command

import (
	"context"
	"testing"

	"github.com/goliatone/go-accountlink/core"
	goerrors "github.com/goliatone/go-errors"
)

func TestRegisterLinkMessage_ValidateReturnsRichError(t *testing.T) {
	tests := []struct {
		name string
		msg  RegisterLinkMessage
	}{
		{name: "missing token", msg: RegisterLinkMessage{PlatformUserID: "p1"}},
		{name: "missing platform user", msg: RegisterLinkMessage{Account: core.RemoteAccount{Token: "t1"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			var rich *goerrors.Error
			if !goerrors.As(err, &rich) {
				t.Fatalf("expected go-errors envelope, got %T", err)
			}
			if rich.Category != goerrors.CategoryValidation {
				t.Fatalf("expected validation category, got %q", rich.Category)
			}
			if rich.TextCode != core.ErrorBadInput {
				t.Fatalf("expected %q text code, got %q", core.ErrorBadInput, rich.TextCode)
			}
		})
	}
}

func TestRegisterLinkCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *RegisterLinkCommand
	err := cmd.Execute(context.Background(), RegisterLinkMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
