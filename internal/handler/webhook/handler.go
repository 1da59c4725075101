package webhook

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/proptalk/backend/internal/model/call"
	"github.com/proptalk/backend/internal/service/conversation"
)

// Dialogue drives one conversation turn per voice webhook.
type Dialogue interface {
	HandleVoice(ctx context.Context, in conversation.Input) string
}

// Records applies provider lifecycle updates to call records.
type Records interface {
	UpdateStatus(ctx context.Context, callSid, status string, duration *int) error
	SaveRecording(ctx context.Context, callSid, recordingURL, recordingSid string) error
}

// Finisher persists the transcript once a call ends.
type Finisher interface {
	Finalize(ctx context.Context, callSid string) error
}

// Tasks schedules work off the webhook response path.
type Tasks interface {
	Go(name string, fn func(ctx context.Context))
}

// Handler serves the Twilio callbacks. Twilio treats any non-200 on the
// voice endpoint as a dead call, so every path here answers 200 with
// whatever XML or JSON keeps the call alive.
type Handler struct {
	dialogue Dialogue
	records  Records
	finisher Finisher
	tasks    Tasks
	voiceURL string
}

func New(dialogue Dialogue, records Records, finisher Finisher, tasks Tasks, voiceURL string) *Handler {
	return &Handler{
		dialogue: dialogue,
		records:  records,
		finisher: finisher,
		tasks:    tasks,
		voiceURL: voiceURL,
	}
}

// RegisterRoutes mounts the webhook endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/voice", h.handleVoice)
	r.Post("/status", h.handleStatus)
	r.Post("/recording", h.handleRecording)
}

func (h *Handler) handleVoice(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[webhook] panic in voice handler: %v", rec)
			writeXML(w, conversation.SafetyHangup())
		}
	}()

	if err := r.ParseForm(); err != nil {
		log.Printf("[webhook] voice form parse failed: %v", err)
		writeXML(w, conversation.SafetyHangup())
		return
	}

	in := conversation.Input{
		CallSid:      r.PostFormValue("CallSid"),
		From:         r.PostFormValue("From"),
		To:           r.PostFormValue("To"),
		Direction:    call.ParseDirection(r.PostFormValue("Direction")),
		SpeechResult: r.PostFormValue("SpeechResult"),
		ActionURL:    h.voiceURL,
	}
	if in.CallSid == "" {
		log.Printf("[webhook] voice request missing CallSid")
		writeXML(w, conversation.SafetyHangup())
		return
	}

	writeXML(w, h.dialogue.HandleVoice(r.Context(), in))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Printf("[webhook] status form parse failed: %v", err)
		writeOK(w)
		return
	}

	callSid := r.PostFormValue("CallSid")
	status := r.PostFormValue("CallStatus")
	var duration *int
	if raw := r.PostFormValue("CallDuration"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			duration = &n
		}
	}

	if callSid == "" || status == "" {
		writeOK(w)
		return
	}

	if err := h.records.UpdateStatus(r.Context(), callSid, status, duration); err != nil {
		log.Printf("[webhook] status update for call %s (%s): %v", callSid, status, err)
	}

	if call.TerminalStatus(status) {
		h.tasks.Go("finalize-call", func(ctx context.Context) {
			if err := h.finisher.Finalize(ctx, callSid); err != nil {
				log.Printf("[webhook] finalize call %s: %v", callSid, err)
			}
		})
	}
	writeOK(w)
}

func (h *Handler) handleRecording(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Printf("[webhook] recording form parse failed: %v", err)
		writeOK(w)
		return
	}

	callSid := r.PostFormValue("CallSid")
	recordingURL := r.PostFormValue("RecordingUrl")
	recordingSid := r.PostFormValue("RecordingSid")

	if callSid != "" && recordingURL != "" && recordingSid != "" {
		if err := h.records.SaveRecording(r.Context(), callSid, recordingURL, recordingSid); err != nil {
			log.Printf("[webhook] save recording for call %s: %v", callSid, err)
		}
	}
	writeOK(w)
}

func writeXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Printf("[webhook] write response: %v", err)
	}
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		log.Printf("[webhook] write response: %v", err)
	}
}
