package directory

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/proptalk/backend/internal/model/agent"
	"github.com/proptalk/backend/internal/model/call"
)

// cacheTTL is how long the whole lookup cache lives. The cache is dropped
// in bulk on expiry rather than per entry; number-to-agent bindings change
// rarely enough that the staleness window is acceptable.
const cacheTTL = 5 * time.Minute

// Lookup is the datastore seam for the phone-to-agent join.
type Lookup interface {
	LookupActiveBinding(ctx context.Context, number string) (agent.Binding, error)
}

// Service resolves the system's own telephony number on a webhook event to
// the voice-agent configuration behind it.
type Service struct {
	store Lookup

	mu       sync.Mutex
	cache    map[string]agent.Binding // keyed by the raw provider-supplied string
	loadedAt time.Time
	now      func() time.Time
}

// NewService builds the directory resolver over the datastore.
func NewService(store Lookup) *Service {
	return &Service{
		store: store,
		cache: make(map[string]agent.Binding),
		now:   time.Now,
	}
}

// Resolve picks the system-owned number from the webhook From/To pair (From
// on outbound legs, To on inbound) and returns its binding. Not-found means
// the number is unprovisioned or its agent inactive.
func (s *Service) Resolve(ctx context.Context, from, to string, direction call.Direction) (agent.Binding, error) {
	number := to
	if direction.IsOutbound() {
		number = from
	}
	return s.lookup(ctx, number)
}

func (s *Service) lookup(ctx context.Context, raw string) (agent.Binding, error) {
	s.mu.Lock()
	if s.now().Sub(s.loadedAt) > cacheTTL {
		s.cache = make(map[string]agent.Binding)
		s.loadedAt = s.now()
	}
	if b, ok := s.cache[raw]; ok {
		s.mu.Unlock()
		return b, nil
	}
	s.mu.Unlock()

	b, err := s.store.LookupActiveBinding(ctx, NormalizeNumber(raw))
	if err != nil {
		return agent.Binding{}, err
	}

	s.mu.Lock()
	s.cache[raw] = b
	s.mu.Unlock()

	log.Printf("[directory] resolved %s to voice agent %s", raw, b.VoiceAgentID)
	return b, nil
}

// NormalizeNumber coerces a provider-supplied number into E.164. Bare local
// numbers get the +92 country code ("03001234567" becomes "+923001234567"),
// and a doubled country code is collapsed.
func NormalizeNumber(raw string) string {
	n := strings.TrimSpace(raw)
	n = strings.ReplaceAll(n, " ", "")
	n = strings.ReplaceAll(n, "-", "")
	if n == "" {
		return n
	}

	if !strings.HasPrefix(n, "+") {
		switch {
		case strings.HasPrefix(n, "92"):
			n = "+" + n
		case strings.HasPrefix(n, "0"):
			n = "+92" + n[1:]
		default:
			n = "+" + n
		}
	}

	if strings.HasPrefix(n, "+9292") {
		n = "+92" + n[len("+9292"):]
	}

	return n
}
