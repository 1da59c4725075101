package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/proptalk/backend/internal/model/agent"
	"github.com/proptalk/backend/internal/model/call"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Store wraps the sqlite database behind the query surface the
// orchestrator needs. Resource CRUD for the dashboard lives elsewhere.
type Store struct {
	db *sql.DB
}

// Open opens the database and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS real_estate_agents (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		company_name TEXT,
		address TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS phone_numbers (
		id TEXT PRIMARY KEY,
		twilio_phone_number TEXT NOT NULL UNIQUE,
		is_active BOOLEAN DEFAULT TRUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS voice_agents (
		id TEXT PRIMARY KEY,
		real_estate_agent_id TEXT NOT NULL,
		phone_number_id TEXT,
		name TEXT NOT NULL,
		system_prompt TEXT,
		status TEXT DEFAULT 'active',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (real_estate_agent_id) REFERENCES real_estate_agents(id),
		FOREIGN KEY (phone_number_id) REFERENCES phone_numbers(id)
	);

	CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		real_estate_agent_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		email TEXT,
		notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (real_estate_agent_id) REFERENCES real_estate_agents(id)
	);

	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		real_estate_agent_id TEXT NOT NULL,
		contact_id TEXT,
		address TEXT NOT NULL,
		city TEXT,
		state TEXT,
		property_type TEXT,
		price REAL,
		bedrooms INTEGER,
		bathrooms INTEGER,
		square_feet INTEGER,
		is_available BOOLEAN DEFAULT TRUE,
		description TEXT,
		amenities TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (real_estate_agent_id) REFERENCES real_estate_agents(id),
		FOREIGN KEY (contact_id) REFERENCES contacts(id)
	);

	CREATE TABLE IF NOT EXISTS calls (
		id TEXT PRIMARY KEY,
		twilio_call_sid TEXT NOT NULL UNIQUE,
		voice_agent_id TEXT,
		real_estate_agent_id TEXT,
		contact_id TEXT,
		from_number TEXT,
		to_number TEXT,
		status TEXT DEFAULT 'initiated',
		direction TEXT DEFAULT 'outbound',
		duration_seconds INTEGER DEFAULT 0,
		recording_url TEXT,
		recording_sid TEXT,
		transcript TEXT,
		transcript_json TEXT,
		user_pov_summary TEXT,
		started_at DATETIME,
		answered_at DATETIME,
		ended_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_voice_agents_tenant ON voice_agents(real_estate_agent_id, status);
	CREATE INDEX IF NOT EXISTS idx_contacts_phone ON contacts(real_estate_agent_id, phone_number);
	CREATE INDEX IF NOT EXISTS idx_properties_contact ON properties(contact_id);
	CREATE INDEX IF NOT EXISTS idx_properties_available ON properties(real_estate_agent_id, is_available);
	CREATE INDEX IF NOT EXISTS idx_calls_sid ON calls(twilio_call_sid);
	`

	_, err := s.db.Exec(schema)
	return err
}

// LookupActiveBinding resolves a provisioned telephony number to its voice
// agent in one joined query. Inactive numbers and non-active agents are
// treated as not found.
func (s *Store) LookupActiveBinding(ctx context.Context, number string) (agent.Binding, error) {
	var b agent.Binding
	err := s.db.QueryRowContext(ctx, `
		SELECT va.id, va.name, va.real_estate_agent_id
		FROM phone_numbers pn
		JOIN voice_agents va ON va.phone_number_id = pn.id
		WHERE pn.twilio_phone_number = ? AND pn.is_active = TRUE AND va.status = 'active'
	`, number).Scan(&b.VoiceAgentID, &b.VoiceAgentName, &b.RealEstateAgentID)
	if errors.Is(err, sql.ErrNoRows) {
		return agent.Binding{}, ErrNotFound
	}
	if err != nil {
		return agent.Binding{}, err
	}
	return b, nil
}

// GetVoiceAgent fetches a voice agent by id.
func (s *Store) GetVoiceAgent(ctx context.Context, id string) (agent.VoiceAgent, error) {
	var va agent.VoiceAgent
	var phoneNumberID, systemPrompt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, real_estate_agent_id, phone_number_id, name, system_prompt, status
		FROM voice_agents WHERE id = ?
	`, id).Scan(&va.ID, &va.RealEstateAgentID, &phoneNumberID, &va.Name, &systemPrompt, &va.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return agent.VoiceAgent{}, ErrNotFound
	}
	if err != nil {
		return agent.VoiceAgent{}, err
	}
	va.PhoneNumberID = phoneNumberID.String
	va.SystemPrompt = systemPrompt.String
	return va, nil
}

// ActiveVoiceAgent returns the tenant's active voice agent together with its
// bound telephony number, as required before placing an outbound call.
func (s *Store) ActiveVoiceAgent(ctx context.Context, tenantID string) (agent.VoiceAgent, agent.PhoneNumber, error) {
	var va agent.VoiceAgent
	var pn agent.PhoneNumber
	var systemPrompt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT va.id, va.real_estate_agent_id, va.phone_number_id, va.name, va.system_prompt, va.status,
		       pn.id, pn.twilio_phone_number, pn.is_active
		FROM voice_agents va
		JOIN phone_numbers pn ON pn.id = va.phone_number_id
		WHERE va.real_estate_agent_id = ? AND va.status = 'active'
	`, tenantID).Scan(&va.ID, &va.RealEstateAgentID, &va.PhoneNumberID, &va.Name, &systemPrompt, &va.Status,
		&pn.ID, &pn.TwilioPhoneNumber, &pn.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return agent.VoiceAgent{}, agent.PhoneNumber{}, ErrNotFound
	}
	if err != nil {
		return agent.VoiceAgent{}, agent.PhoneNumber{}, err
	}
	va.SystemPrompt = systemPrompt.String
	return va, pn, nil
}

// GetRealEstateAgent fetches a tenant by id.
func (s *Store) GetRealEstateAgent(ctx context.Context, id string) (agent.RealEstateAgent, error) {
	var rea agent.RealEstateAgent
	var company, address sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, company_name, address FROM real_estate_agents WHERE id = ?
	`, id).Scan(&rea.ID, &rea.FullName, &company, &address)
	if errors.Is(err, sql.ErrNoRows) {
		return agent.RealEstateAgent{}, ErrNotFound
	}
	if err != nil {
		return agent.RealEstateAgent{}, err
	}
	rea.CompanyName = company.String
	rea.Address = address.String
	return rea, nil
}

// GetContact fetches a contact scoped to its tenant.
func (s *Store) GetContact(ctx context.Context, contactID, tenantID string) (agent.Contact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, real_estate_agent_id, name, phone_number, email, notes
		FROM contacts WHERE id = ? AND real_estate_agent_id = ?
	`, contactID, tenantID)
	return scanContact(row)
}

// FindContactByPhone matches a caller number against stored contacts. The
// match is deliberately loose: exact raw, exact normalized, or a suffix
// match on the last ten digits, since providers and imports disagree on
// formatting.
func (s *Store) FindContactByPhone(ctx context.Context, tenantID, raw, normalized string) (agent.Contact, error) {
	suffix := normalized
	if len(suffix) > 10 {
		suffix = suffix[len(suffix)-10:]
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, real_estate_agent_id, name, phone_number, email, notes
		FROM contacts
		WHERE real_estate_agent_id = ?
		  AND (phone_number = ? OR phone_number = ? OR phone_number LIKE '%' || ? || '%')
		LIMIT 1
	`, tenantID, raw, normalized, suffix)
	return scanContact(row)
}

func scanContact(row *sql.Row) (agent.Contact, error) {
	var c agent.Contact
	var email, notes sql.NullString
	err := row.Scan(&c.ID, &c.RealEstateAgentID, &c.Name, &c.PhoneNumber, &email, &notes)
	if errors.Is(err, sql.ErrNoRows) {
		return agent.Contact{}, ErrNotFound
	}
	if err != nil {
		return agent.Contact{}, err
	}
	c.Email = email.String
	c.Notes = notes.String
	return c, nil
}

// ListContactProperties returns the properties linked to a contact.
func (s *Store) ListContactProperties(ctx context.Context, contactID, tenantID string) ([]agent.Property, error) {
	rows, err := s.db.QueryContext(ctx, propertySelect+`
		WHERE contact_id = ? AND real_estate_agent_id = ?
		ORDER BY created_at
	`, contactID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProperties(rows)
}

// ListAvailableProperties returns every property the tenant currently has
// on the market.
func (s *Store) ListAvailableProperties(ctx context.Context, tenantID string) ([]agent.Property, error) {
	rows, err := s.db.QueryContext(ctx, propertySelect+`
		WHERE real_estate_agent_id = ? AND is_available = TRUE
		ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProperties(rows)
}

const propertySelect = `
	SELECT id, real_estate_agent_id, contact_id, address, city, state, property_type,
	       price, bedrooms, bathrooms, square_feet, is_available, description, amenities
	FROM properties
`

func collectProperties(rows *sql.Rows) ([]agent.Property, error) {
	var out []agent.Property
	for rows.Next() {
		var p agent.Property
		var contactID, city, state, ptype, description, amenities sql.NullString
		var price sql.NullFloat64
		var bedrooms, bathrooms, squareFeet sql.NullInt64
		if err := rows.Scan(&p.ID, &p.RealEstateAgentID, &contactID, &p.Address, &city, &state, &ptype,
			&price, &bedrooms, &bathrooms, &squareFeet, &p.IsAvailable, &description, &amenities); err != nil {
			return nil, err
		}
		p.ContactID = contactID.String
		p.City = city.String
		p.State = state.String
		p.PropertyType = ptype.String
		p.Price = price.Float64
		p.Bedrooms = int(bedrooms.Int64)
		p.Bathrooms = int(bathrooms.Int64)
		p.SquareFeet = int(squareFeet.Int64)
		p.Description = description.String
		p.Amenities = amenities.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateCall inserts a new call record.
func (s *Store) CreateCall(ctx context.Context, rec call.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (id, twilio_call_sid, voice_agent_id, real_estate_agent_id, contact_id,
			from_number, to_number, status, direction, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.TwilioCallSid, nullable(rec.VoiceAgentID), nullable(rec.RealEstateAgentID), nullable(rec.ContactID),
		rec.FromNumber, rec.ToNumber, rec.Status, string(rec.Direction), nullableTime(rec.StartedAt))
	return err
}

// GetCallBySid fetches a call record by its provider call identifier.
func (s *Store) GetCallBySid(ctx context.Context, sid string) (call.Record, error) {
	var rec call.Record
	var voiceAgentID, tenantID, contactID, from, to, recordingURL, recordingSid sql.NullString
	var transcript, transcriptJSON, povSummary sql.NullString
	var direction string
	var duration sql.NullInt64
	var startedAt, answeredAt, endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, twilio_call_sid, voice_agent_id, real_estate_agent_id, contact_id,
		       from_number, to_number, status, direction, duration_seconds,
		       recording_url, recording_sid, transcript, transcript_json, user_pov_summary,
		       started_at, answered_at, ended_at, created_at, updated_at
		FROM calls WHERE twilio_call_sid = ?
	`, sid).Scan(&rec.ID, &rec.TwilioCallSid, &voiceAgentID, &tenantID, &contactID,
		&from, &to, &rec.Status, &direction, &duration,
		&recordingURL, &recordingSid, &transcript, &transcriptJSON, &povSummary,
		&startedAt, &answeredAt, &endedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return call.Record{}, ErrNotFound
	}
	if err != nil {
		return call.Record{}, err
	}
	rec.VoiceAgentID = voiceAgentID.String
	rec.RealEstateAgentID = tenantID.String
	rec.ContactID = contactID.String
	rec.FromNumber = from.String
	rec.ToNumber = to.String
	rec.Direction = call.Direction(direction)
	rec.DurationSeconds = int(duration.Int64)
	rec.RecordingURL = recordingURL.String
	rec.RecordingSid = recordingSid.String
	rec.Transcript = transcript.String
	rec.TranscriptJSON = transcriptJSON.String
	rec.UserPovSummary = povSummary.String
	rec.StartedAt = startedAt.Time
	rec.AnsweredAt = answeredAt.Time
	rec.EndedAt = endedAt.Time
	return rec, nil
}

// UpdateCallSid replaces the placeholder sid written at initiation time with
// the real provider sid.
func (s *Store) UpdateCallSid(ctx context.Context, id, sid string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE calls SET twilio_call_sid = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, sid, id)
	return err
}

// MarkCallFailed flags a call that never left the gate.
func (s *Store) MarkCallFailed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE calls SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, call.StatusFailed, id)
	return err
}

// UpdateCallStatus applies a provider status transition, stamping
// answered_at on the first in-progress and ended_at on terminal statuses.
func (s *Store) UpdateCallStatus(ctx context.Context, sid, status string, duration *int) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE calls SET
			status = ?,
			answered_at = CASE WHEN ? = 'in-progress' AND answered_at IS NULL THEN ? ELSE answered_at END,
			ended_at = CASE WHEN ? IN ('completed', 'failed', 'busy', 'no-answer', 'canceled') THEN ? ELSE ended_at END,
			duration_seconds = COALESCE(?, duration_seconds),
			updated_at = CURRENT_TIMESTAMP
		WHERE twilio_call_sid = ?
	`, status, status, now, status, now, durationOrNil(duration), sid)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveRecording stores the recording pointer from the recording webhook.
func (s *Store) SaveRecording(ctx context.Context, sid, recordingURL, recordingSid string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE calls SET recording_url = ?, recording_sid = ?, updated_at = CURRENT_TIMESTAMP
		WHERE twilio_call_sid = ?
	`, recordingURL, recordingSid, sid)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveTranscript writes the rendered transcript, the structured turn log and
// the user point-of-view summary. Written once, at call termination.
func (s *Store) SaveTranscript(ctx context.Context, sid, transcript, transcriptJSON, povSummary string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE calls SET transcript = ?, transcript_json = ?, user_pov_summary = ?, updated_at = CURRENT_TIMESTAMP
		WHERE twilio_call_sid = ?
	`, transcript, transcriptJSON, povSummary, sid)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func durationOrNil(d *int) any {
	if d == nil {
		return nil
	}
	return *d
}
