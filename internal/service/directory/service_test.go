package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/proptalk/backend/internal/model/agent"
	"github.com/proptalk/backend/internal/model/call"
)

func TestNormalizeNumber(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"03001234567", "+923001234567"},
		{"923001234567", "+923001234567"},
		{"+923001234567", "+923001234567"},
		{"+92 300 123-4567", "+923001234567"},
		{"+92923001234567", "+923001234567"},
		{"0300 1234567", "+923001234567"},
		{"14155552671", "+14155552671"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeNumber(c.in); got != c.want {
			t.Fatalf("NormalizeNumber(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

type fakeLookup struct {
	calls    int
	bindings map[string]agent.Binding
}

func (f *fakeLookup) LookupActiveBinding(ctx context.Context, number string) (agent.Binding, error) {
	f.calls++
	b, ok := f.bindings[number]
	if !ok {
		return agent.Binding{}, errors.New("not found")
	}
	return b, nil
}

func TestResolvePicksSystemNumberByDirection(t *testing.T) {
	store := &fakeLookup{bindings: map[string]agent.Binding{
		"+921110000000": {VoiceAgentID: "va1", VoiceAgentName: "Sara", RealEstateAgentID: "re1"},
	}}
	svc := NewService(store)

	// Outbound: our number is From.
	b, err := svc.Resolve(context.Background(), "+921110000000", "+923001234567", call.DirectionOutbound)
	if err != nil {
		t.Fatalf("outbound resolve: %v", err)
	}
	if b.VoiceAgentID != "va1" {
		t.Fatalf("unexpected binding: %+v", b)
	}

	// Inbound: our number is To.
	b, err = svc.Resolve(context.Background(), "+923001234567", "+921110000000", call.DirectionInbound)
	if err != nil {
		t.Fatalf("inbound resolve: %v", err)
	}
	if b.VoiceAgentName != "Sara" {
		t.Fatalf("unexpected binding: %+v", b)
	}
}

func TestResolveCachesByRawNumber(t *testing.T) {
	store := &fakeLookup{bindings: map[string]agent.Binding{
		"+921110000000": {VoiceAgentID: "va1"},
	}}
	svc := NewService(store)

	for i := 0; i < 3; i++ {
		if _, err := svc.Resolve(context.Background(), "x", "+921110000000", call.DirectionInbound); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	if store.calls != 1 {
		t.Fatalf("expected 1 datastore hit, got %d", store.calls)
	}

	// A different raw spelling of the same number misses the cache.
	if _, err := svc.Resolve(context.Background(), "x", "0111 0000000", call.DirectionInbound); err != nil {
		t.Fatalf("resolve raw variant: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected 2 datastore hits, got %d", store.calls)
	}
}

func TestResolveCacheExpiresInBulk(t *testing.T) {
	store := &fakeLookup{bindings: map[string]agent.Binding{
		"+921110000000": {VoiceAgentID: "va1"},
		"+922220000000": {VoiceAgentID: "va2"},
	}}
	svc := NewService(store)
	now := time.Now()
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	svc.Resolve(ctx, "x", "+921110000000", call.DirectionInbound)
	svc.Resolve(ctx, "x", "+922220000000", call.DirectionInbound)
	if store.calls != 2 {
		t.Fatalf("expected 2 datastore hits, got %d", store.calls)
	}

	now = now.Add(6 * time.Minute)
	svc.Resolve(ctx, "x", "+921110000000", call.DirectionInbound)
	svc.Resolve(ctx, "x", "+922220000000", call.DirectionInbound)
	if store.calls != 4 {
		t.Fatalf("expected both entries dropped on expiry, got %d hits", store.calls)
	}
}

func TestResolveErrorsAreNotCached(t *testing.T) {
	store := &fakeLookup{bindings: map[string]agent.Binding{}}
	svc := NewService(store)

	ctx := context.Background()
	if _, err := svc.Resolve(ctx, "x", "+929990000000", call.DirectionInbound); err == nil {
		t.Fatalf("expected error for unknown number")
	}
	store.bindings["+929990000000"] = agent.Binding{VoiceAgentID: "va9"}
	b, err := svc.Resolve(ctx, "x", "+929990000000", call.DirectionInbound)
	if err != nil {
		t.Fatalf("expected retry to hit the datastore: %v", err)
	}
	if b.VoiceAgentID != "va9" {
		t.Fatalf("unexpected binding: %+v", b)
	}
}
