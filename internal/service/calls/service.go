package calls

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/proptalk/backend/internal/model/agent"
	"github.com/proptalk/backend/internal/model/call"
	"github.com/proptalk/backend/internal/service/directory"
	"github.com/proptalk/backend/internal/store"
)

var (
	ErrNoActiveAgent = errors.New("no active voice agent for this account")
	ErrCallNotFound  = errors.New("call not found")
)

// recordStore is the slice of the datastore the record service writes to.
type recordStore interface {
	GetCallBySid(ctx context.Context, sid string) (call.Record, error)
	CreateCall(ctx context.Context, rec call.Record) error
	FindContactByPhone(ctx context.Context, tenantID, raw, normalized string) (agent.Contact, error)
	UpdateCallStatus(ctx context.Context, sid, status string, duration *int) error
	SaveRecording(ctx context.Context, sid, recordingURL, recordingSid string) error
}

// Service owns call record lifecycle: creation at initiation or first
// inbound webhook, provider status transitions, recordings and transcripts.
type Service struct {
	store recordStore
}

func NewService(st recordStore) *Service {
	return &Service{store: st}
}

// EnsureInbound creates the record for an inbound call on its first webhook
// hit. Safe to call on every turn; an existing record is left alone. The
// caller is matched against contacts best effort so the record links back
// to a known person when possible.
func (s *Service) EnsureInbound(ctx context.Context, callSid, from, to, voiceAgentID, tenantID string) error {
	_, err := s.store.GetCallBySid(ctx, callSid)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup call %s: %w", callSid, err)
	}

	contactID := ""
	if contact, err := s.store.FindContactByPhone(ctx, tenantID, from, directory.NormalizeNumber(from)); err == nil {
		contactID = contact.ID
	}

	rec := call.Record{
		ID:                uuid.NewString(),
		TwilioCallSid:     callSid,
		VoiceAgentID:      voiceAgentID,
		RealEstateAgentID: tenantID,
		ContactID:         contactID,
		FromNumber:        from,
		ToNumber:          to,
		Status:            call.StatusInProgress,
		Direction:         call.DirectionInbound,
		StartedAt:         time.Now().UTC(),
	}
	if err := s.store.CreateCall(ctx, rec); err != nil {
		return fmt.Errorf("create inbound call record: %w", err)
	}
	log.Printf("[calls] created inbound record %s for call %s", rec.ID, callSid)
	return nil
}

// ContactIDForCall returns the contact linked to a call record, empty when
// none is linked.
func (s *Service) ContactIDForCall(ctx context.Context, callSid string) (string, error) {
	rec, err := s.store.GetCallBySid(ctx, callSid)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrCallNotFound
	}
	if err != nil {
		return "", err
	}
	return rec.ContactID, nil
}

// UpdateStatus applies a provider status transition reported by the status
// callback. Terminal statuses hand off to the finisher for transcript
// persistence; that wiring lives with the caller.
func (s *Service) UpdateStatus(ctx context.Context, callSid, status string, duration *int) error {
	err := s.store.UpdateCallStatus(ctx, callSid, status, duration)
	if errors.Is(err, store.ErrNotFound) {
		return ErrCallNotFound
	}
	return err
}

// SaveRecording stores the recording pointer from the recording callback.
func (s *Service) SaveRecording(ctx context.Context, callSid, recordingURL, recordingSid string) error {
	err := s.store.SaveRecording(ctx, callSid, recordingURL, recordingSid)
	if errors.Is(err, store.ErrNotFound) {
		return ErrCallNotFound
	}
	return err
}

// Get fetches a call record by provider sid.
func (s *Service) Get(ctx context.Context, callSid string) (call.Record, error) {
	rec, err := s.store.GetCallBySid(ctx, callSid)
	if errors.Is(err, store.ErrNotFound) {
		return call.Record{}, ErrCallNotFound
	}
	return rec, err
}
