package calls

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/proptalk/backend/internal/config"
	"github.com/proptalk/backend/internal/model/agent"
	"github.com/proptalk/backend/internal/model/call"
	"github.com/proptalk/backend/internal/store"
)

var ErrTelephonyDisabled = errors.New("telephony credentials not configured")

// callCreator is the slice of the Twilio REST API the dialer uses.
type callCreator interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
}

// dialStore is the slice of the datastore the dialer touches.
type dialStore interface {
	ActiveVoiceAgent(ctx context.Context, tenantID string) (agent.VoiceAgent, agent.PhoneNumber, error)
	GetContact(ctx context.Context, contactID, tenantID string) (agent.Contact, error)
	CreateCall(ctx context.Context, rec call.Record) error
	UpdateCallSid(ctx context.Context, id, sid string) error
	MarkCallFailed(ctx context.Context, id string) error
}

// Dialer places outbound calls. The record is inserted before the provider
// request with the record id standing in for the call sid, then the real
// sid overwrites it once the provider accepts. A rejected request leaves
// the record behind marked failed.
type Dialer struct {
	store dialStore
	cfg   config.TwilioConfig
	api   callCreator
}

func NewDialer(st dialStore, cfg config.TwilioConfig) *Dialer {
	d := &Dialer{store: st, cfg: cfg}
	if cfg.Enabled() {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		d.api = client.Api
	}
	return d
}

// NewDialerWithAPI wires a custom provider client, used by tests.
func NewDialerWithAPI(st dialStore, cfg config.TwilioConfig, api callCreator) *Dialer {
	return &Dialer{store: st, cfg: cfg, api: api}
}

// InitiateResult is what the dashboard gets back for a placed call.
type InitiateResult struct {
	ID            string `json:"id"`
	TwilioCallSid string `json:"twilioCallSid"`
	Status        string `json:"status"`
	FromNumber    string `json:"fromNumber"`
	ToNumber      string `json:"toNumber"`
}

// Initiate places an outbound call from the tenant's active voice agent to
// the given number, optionally linked to a contact.
func (d *Dialer) Initiate(ctx context.Context, tenantID, contactID, toNumber string) (InitiateResult, error) {
	if d.api == nil {
		return InitiateResult{}, ErrTelephonyDisabled
	}

	va, pn, err := d.store.ActiveVoiceAgent(ctx, tenantID)
	if errors.Is(err, store.ErrNotFound) {
		return InitiateResult{}, ErrNoActiveAgent
	}
	if err != nil {
		return InitiateResult{}, fmt.Errorf("active voice agent lookup: %w", err)
	}

	if contactID != "" {
		if _, err := d.store.GetContact(ctx, contactID, tenantID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return InitiateResult{}, fmt.Errorf("contact %s not found", contactID)
			}
			return InitiateResult{}, err
		}
	}

	to := ensurePlusPrefix(toNumber)

	// The sid column is unique, so the record id stands in until the
	// provider hands back the real sid.
	rec := call.Record{
		ID:                uuid.NewString(),
		TwilioCallSid:     "",
		VoiceAgentID:      va.ID,
		RealEstateAgentID: tenantID,
		ContactID:         contactID,
		FromNumber:        pn.TwilioPhoneNumber,
		ToNumber:          to,
		Status:            call.StatusInitiated,
		Direction:         call.DirectionOutbound,
		StartedAt:         time.Now().UTC(),
	}
	rec.TwilioCallSid = rec.ID
	if err := d.store.CreateCall(ctx, rec); err != nil {
		return InitiateResult{}, fmt.Errorf("create call record: %w", err)
	}

	params := &api.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(pn.TwilioPhoneNumber)
	params.SetUrl(d.cfg.VoiceURL())
	params.SetMethod("POST")
	params.SetRecord(true)
	params.SetRecordingStatusCallback(d.cfg.RecordingURL())
	params.SetRecordingStatusCallbackMethod("POST")
	params.SetStatusCallback(d.cfg.StatusURL())
	params.SetStatusCallbackMethod("POST")

	resp, err := d.api.CreateCall(params)
	if err != nil {
		if markErr := d.store.MarkCallFailed(ctx, rec.ID); markErr != nil {
			log.Printf("[calls] mark failed for record %s: %v", rec.ID, markErr)
		}
		return InitiateResult{}, fmt.Errorf("place call: %w", err)
	}

	sid := rec.ID
	if resp.Sid != nil && *resp.Sid != "" {
		sid = *resp.Sid
	}
	if err := d.store.UpdateCallSid(ctx, rec.ID, sid); err != nil {
		log.Printf("[calls] update sid for record %s: %v", rec.ID, err)
	}

	log.Printf("[calls] placed outbound call %s to %s", sid, to)
	return InitiateResult{
		ID:            rec.ID,
		TwilioCallSid: sid,
		Status:        call.StatusInitiated,
		FromNumber:    pn.TwilioPhoneNumber,
		ToNumber:      to,
	}, nil
}

func ensurePlusPrefix(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, "+") {
		return number
	}
	return "+" + strings.TrimLeft(number, "+")
}
