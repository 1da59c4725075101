package ai

import "github.com/proptalk/backend/internal/model/agent"

// ContactInfo is the slice of a contact the dialogue needs.
type ContactInfo struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// AgentInfo describes the tenant the voice agent speaks for.
type AgentInfo struct {
	Name        string `json:"name"`
	CompanyName string `json:"companyName,omitempty"`
	Address     string `json:"address,omitempty"`
}

// CallContext is the dialogue context assembled by the context builder and
// cached on the conversation session. It starts empty and is populated at
// most once per call.
type CallContext struct {
	VoiceAgentName string           `json:"voiceAgentName,omitempty"`
	Agent          AgentInfo        `json:"agent"`
	Contact        *ContactInfo     `json:"contact,omitempty"`       // outbound: the person being called
	CallerContact  *ContactInfo     `json:"callerContact,omitempty"` // inbound: recognized caller, best effort
	Properties     []agent.Property `json:"properties,omitempty"`

	// Pre-rendered blocks for prompt injection.
	PropertiesText    string `json:"propertiesText,omitempty"`    // outbound: full per-property detail
	PropertiesSummary string `json:"propertiesSummary,omitempty"` // inbound: numbered short list
	PropertyCount     int    `json:"propertyCount,omitempty"`

	// Err records a failed build so callers fall back instead of retrying
	// on the critical path.
	Err string `json:"error,omitempty"`
}

// Empty reports whether the context has not been populated yet. A failed
// build (Err set) counts as populated so it is not rebuilt every turn.
func (c CallContext) Empty() bool {
	return c.VoiceAgentName == "" && c.Agent == (AgentInfo{}) && c.Contact == nil &&
		c.CallerContact == nil && len(c.Properties) == 0 && c.Err == ""
}
