package gocommand

import (
	"context"
	"errors"
	"testing"

	accountlink "github.com/goliatone/go-accountlink"
	linkcommand "github.com/goliatone/go-accountlink/command"
	"github.com/goliatone/go-accountlink/core"
	linkquery "github.com/goliatone/go-accountlink/query"
	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

type okMessage struct{}

func (okMessage) Type() string { return "accountlink.command.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "accountlink.command.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "accountlink.command.test" }

type queueMessage struct{}

func (queueMessage) Type() string { return "accountlink.command.queue" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0
	customResolverCalled := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	if _, err := RegisterAndSubscribe(adapter, cmd); err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	if err := adapter.AddResolver("custom", func(any, command.CommandMeta, *command.Registry) error {
		customResolverCalled++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("custom") {
		t.Fatalf("expected custom resolver to be registered")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if customResolverCalled == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

func TestQueueResolverHookWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()

	cmd := command.CommandFunc[queueMessage](func(context.Context, queueMessage) error { return nil })

	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := adapter.RegisterCommand(cmd); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if _, ok := queueRegistry.Get("accountlink.command.queue"); !ok {
		t.Fatalf("expected command to be mirrored into queue registry")
	}
}

type stubLinkService struct {
	owners map[string]string
}

func (s *stubLinkService) RegisterLink(_ context.Context, account core.RemoteAccount, platformUserID string) (core.RegisterLinkResult, error) {
	s.owners[account.RemoteUserID] = platformUserID
	return core.RegisterLinkResult{LinkCreated: true}, nil
}

func (s *stubLinkService) ListRemoteAccounts(context.Context, string) ([]core.LinkedAccount, error) {
	return []core.LinkedAccount{}, nil
}

func (s *stubLinkService) LookupPlatformUserOnInstance(_ context.Context, remoteInstance string, remoteUserID string) (string, error) {
	owner, ok := s.owners[remoteUserID]
	if !ok {
		return "", core.NewNotFound(remoteInstance, remoteUserID)
	}
	return owner, nil
}

func (s *stubLinkService) IsRemoteUserRegistered(_ context.Context, remoteUserID string) (bool, error) {
	_, ok := s.owners[remoteUserID]
	return ok, nil
}

func (s *stubLinkService) Stats(context.Context) (core.StoreStats, error) {
	return core.StoreStats{Links: len(s.owners)}, nil
}

func TestRegisterFacade_DispatchesLinkOperations(t *testing.T) {
	ctx := context.Background()
	facade, err := accountlink.NewFacade(&stubLinkService{owners: map[string]string{}})
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	adapter := NewRegistryAdapter(command.NewRegistry())
	subscriptions, err := RegisterFacade(adapter, facade)
	if err != nil {
		t.Fatalf("register facade: %v", err)
	}
	defer subscriptions.Unsubscribe()
	if len(subscriptions) != 5 {
		t.Fatalf("expected five subscriptions, got %d", len(subscriptions))
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if err := Dispatch(ctx, linkcommand.RegisterLinkMessage{
		Account:        core.RemoteAccount{Token: "t1", RemoteUserID: "42"},
		PlatformUserID: "p1",
	}); err != nil {
		t.Fatalf("dispatch register link: %v", err)
	}

	owner, err := Query[linkquery.LookupPlatformUserMessage, string](ctx, linkquery.LookupPlatformUserMessage{RemoteUserID: "42"})
	if err != nil {
		t.Fatalf("query lookup: %v", err)
	}
	if owner != "p1" {
		t.Fatalf("expected p1, got %q", owner)
	}

	registered, err := Query[linkquery.IsRemoteUserRegisteredMessage, bool](ctx, linkquery.IsRemoteUserRegisteredMessage{RemoteUserID: "42"})
	if err != nil {
		t.Fatalf("query registered: %v", err)
	}
	if !registered {
		t.Fatalf("expected 42 to be registered")
	}

	stats, err := Query[linkquery.StoreStatsMessage, core.StoreStats](ctx, linkquery.StoreStatsMessage{})
	if err != nil {
		t.Fatalf("query stats: %v", err)
	}
	if stats.Links != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestRegisterFacade_RequiresFacade(t *testing.T) {
	if _, err := RegisterFacade(NewRegistryAdapter(nil), nil); err == nil {
		t.Fatalf("expected facade error")
	}
}
