package calls

import (
	"context"
	"errors"
	"testing"

	"github.com/proptalk/backend/internal/model/agent"
	"github.com/proptalk/backend/internal/model/call"
	"github.com/proptalk/backend/internal/store"
)

type fakeRecordStore struct {
	records  map[string]call.Record
	byPhone  map[string]agent.Contact
	statuses []string
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		records: make(map[string]call.Record),
		byPhone: make(map[string]agent.Contact),
	}
}

func (f *fakeRecordStore) GetCallBySid(ctx context.Context, sid string) (call.Record, error) {
	rec, ok := f.records[sid]
	if !ok {
		return call.Record{}, store.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRecordStore) CreateCall(ctx context.Context, rec call.Record) error {
	f.records[rec.TwilioCallSid] = rec
	return nil
}

func (f *fakeRecordStore) FindContactByPhone(ctx context.Context, tenantID, raw, normalized string) (agent.Contact, error) {
	if c, ok := f.byPhone[normalized]; ok {
		return c, nil
	}
	return agent.Contact{}, store.ErrNotFound
}

func (f *fakeRecordStore) UpdateCallStatus(ctx context.Context, sid, status string, duration *int) error {
	rec, ok := f.records[sid]
	if !ok {
		return store.ErrNotFound
	}
	rec.Status = status
	f.records[sid] = rec
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeRecordStore) SaveRecording(ctx context.Context, sid, recordingURL, recordingSid string) error {
	rec, ok := f.records[sid]
	if !ok {
		return store.ErrNotFound
	}
	rec.RecordingURL = recordingURL
	rec.RecordingSid = recordingSid
	f.records[sid] = rec
	return nil
}

func TestEnsureInboundCreatesRecordOnce(t *testing.T) {
	st := newFakeRecordStore()
	st.byPhone["+923001234567"] = agent.Contact{ID: "c1", Name: "Ali Khan"}
	svc := NewService(st)

	ctx := context.Background()
	if err := svc.EnsureInbound(ctx, "CA1", "03001234567", "+921110000000", "va1", "re1"); err != nil {
		t.Fatalf("ensure inbound: %v", err)
	}
	if err := svc.EnsureInbound(ctx, "CA1", "03001234567", "+921110000000", "va1", "re1"); err != nil {
		t.Fatalf("second ensure inbound: %v", err)
	}

	if len(st.records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(st.records))
	}
	rec := st.records["CA1"]
	if rec.Direction != call.DirectionInbound || rec.Status != call.StatusInProgress {
		t.Fatalf("record wrongly initialized: %+v", rec)
	}
	if rec.ContactID != "c1" {
		t.Fatalf("caller should be linked to the known contact, got %q", rec.ContactID)
	}
}

func TestEnsureInboundUnknownCallerHasNoContact(t *testing.T) {
	st := newFakeRecordStore()
	svc := NewService(st)

	if err := svc.EnsureInbound(context.Background(), "CA2", "+929990000000", "+921110000000", "va1", "re1"); err != nil {
		t.Fatalf("ensure inbound: %v", err)
	}
	if got := st.records["CA2"].ContactID; got != "" {
		t.Fatalf("unknown caller should not be linked, got %q", got)
	}
}

func TestContactIDForCall(t *testing.T) {
	st := newFakeRecordStore()
	st.records["CA3"] = call.Record{TwilioCallSid: "CA3", ContactID: "c7"}
	svc := NewService(st)

	id, err := svc.ContactIDForCall(context.Background(), "CA3")
	if err != nil || id != "c7" {
		t.Fatalf("expected c7, got %q (%v)", id, err)
	}

	if _, err := svc.ContactIDForCall(context.Background(), "missing"); !errors.Is(err, ErrCallNotFound) {
		t.Fatalf("expected ErrCallNotFound, got %v", err)
	}
}

func TestUpdateStatusMapsNotFound(t *testing.T) {
	st := newFakeRecordStore()
	st.records["CA4"] = call.Record{TwilioCallSid: "CA4", Status: call.StatusRinging}
	svc := NewService(st)

	if err := svc.UpdateStatus(context.Background(), "CA4", call.StatusCompleted, nil); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if st.records["CA4"].Status != call.StatusCompleted {
		t.Fatalf("status not applied: %+v", st.records["CA4"])
	}

	if err := svc.UpdateStatus(context.Background(), "missing", call.StatusCompleted, nil); !errors.Is(err, ErrCallNotFound) {
		t.Fatalf("expected ErrCallNotFound, got %v", err)
	}
}

func TestSaveRecording(t *testing.T) {
	st := newFakeRecordStore()
	st.records["CA5"] = call.Record{TwilioCallSid: "CA5"}
	svc := NewService(st)

	if err := svc.SaveRecording(context.Background(), "CA5", "https://api.twilio.com/rec/RE1", "RE1"); err != nil {
		t.Fatalf("save recording: %v", err)
	}
	rec := st.records["CA5"]
	if rec.RecordingSid != "RE1" || rec.RecordingURL == "" {
		t.Fatalf("recording not stored: %+v", rec)
	}
}
