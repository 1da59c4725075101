package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/proptalk/backend/internal/model/agent"
)

// maxPromptProperties caps how many listings are rendered into the prompt
// so long portfolios do not blow the model's context window.
const maxPromptProperties = 20

// directoryStore is the slice of the store the context builder reads from.
type directoryStore interface {
	GetVoiceAgent(ctx context.Context, id string) (agent.VoiceAgent, error)
	GetRealEstateAgent(ctx context.Context, id string) (agent.RealEstateAgent, error)
	GetContact(ctx context.Context, contactID, tenantID string) (agent.Contact, error)
	FindContactByPhone(ctx context.Context, tenantID, raw, normalized string) (agent.Contact, error)
	ListContactProperties(ctx context.Context, contactID, tenantID string) ([]agent.Property, error)
	ListAvailableProperties(ctx context.Context, tenantID string) ([]agent.Property, error)
}

// ContextBuilder assembles the dialogue context for a call. Builds run in
// the background after the greeting turn; a failed build is recorded in
// CallContext.Err instead of returned, so the caller can cache the result
// and fall back to the generic prompt.
type ContextBuilder struct {
	store directoryStore
}

func NewContextBuilder(store directoryStore) *ContextBuilder {
	return &ContextBuilder{store: store}
}

// BuildOutbound gathers the contact, their linked properties and the tenant
// for an outbound call.
func (b *ContextBuilder) BuildOutbound(ctx context.Context, voiceAgentID, tenantID, contactID string) CallContext {
	cc := CallContext{}

	va, err := b.store.GetVoiceAgent(ctx, voiceAgentID)
	if err != nil {
		log.Printf("[context] outbound build failed: voice agent %s: %v", voiceAgentID, err)
		cc.Err = "voice agent lookup failed"
		return cc
	}
	cc.VoiceAgentName = va.Name

	tenant, err := b.store.GetRealEstateAgent(ctx, tenantID)
	if err != nil {
		log.Printf("[context] outbound build failed: tenant %s: %v", tenantID, err)
		cc.Err = "agent lookup failed"
		return cc
	}
	cc.Agent = AgentInfo{Name: tenant.FullName, CompanyName: tenant.CompanyName, Address: tenant.Address}

	contact, err := b.store.GetContact(ctx, contactID, tenantID)
	if err != nil {
		log.Printf("[context] outbound build failed: contact %s: %v", contactID, err)
		cc.Err = "contact lookup failed"
		return cc
	}
	cc.Contact = &ContactInfo{
		Name:        contact.Name,
		PhoneNumber: contact.PhoneNumber,
		Email:       contact.Email,
		Notes:       contact.Notes,
	}

	props, err := b.store.ListContactProperties(ctx, contactID, tenantID)
	if err != nil {
		// Contact details alone still make a useful prompt.
		log.Printf("[context] property listing failed for contact %s: %v", contactID, err)
		props = nil
	}
	cc.Properties = props
	cc.PropertyCount = len(props)
	cc.PropertiesText = renderPropertiesText(props)
	return cc
}

// BuildInbound gathers the available portfolio for an inbound call and
// tries to recognize the caller as an existing contact. Caller recognition
// is best effort and never fails the build.
func (b *ContextBuilder) BuildInbound(ctx context.Context, voiceAgentID, tenantID, callerRaw, callerNormalized string) CallContext {
	cc := CallContext{}

	va, err := b.store.GetVoiceAgent(ctx, voiceAgentID)
	if err != nil {
		log.Printf("[context] inbound build failed: voice agent %s: %v", voiceAgentID, err)
		cc.Err = "voice agent lookup failed"
		return cc
	}
	cc.VoiceAgentName = va.Name

	tenant, err := b.store.GetRealEstateAgent(ctx, tenantID)
	if err != nil {
		log.Printf("[context] inbound build failed: tenant %s: %v", tenantID, err)
		cc.Err = "agent lookup failed"
		return cc
	}
	cc.Agent = AgentInfo{Name: tenant.FullName, CompanyName: tenant.CompanyName, Address: tenant.Address}

	props, err := b.store.ListAvailableProperties(ctx, tenantID)
	if err != nil {
		log.Printf("[context] available property listing failed for tenant %s: %v", tenantID, err)
		props = nil
	}
	cc.Properties = props
	cc.PropertyCount = len(props)
	cc.PropertiesSummary = renderPropertiesSummary(props)

	if callerRaw != "" {
		if contact, err := b.store.FindContactByPhone(ctx, tenantID, callerRaw, callerNormalized); err == nil {
			cc.CallerContact = &ContactInfo{Name: contact.Name, PhoneNumber: contact.PhoneNumber}
		}
	}
	return cc
}

// QuickContact fetches just the contact's name and number for the greeting
// turn, under a short deadline so a slow database never delays pickup.
func (b *ContextBuilder) QuickContact(ctx context.Context, contactID, tenantID string) *ContactInfo {
	if contactID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
	defer cancel()

	contact, err := b.store.GetContact(ctx, contactID, tenantID)
	if err != nil {
		log.Printf("[context] quick contact lookup failed for %s: %v", contactID, err)
		return nil
	}
	return &ContactInfo{Name: contact.Name, PhoneNumber: contact.PhoneNumber}
}

// QuickTenant fetches just the tenant's name and company for the greeting
// turn, best effort under a short deadline.
func (b *ContextBuilder) QuickTenant(ctx context.Context, tenantID string) AgentInfo {
	ctx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
	defer cancel()

	tenant, err := b.store.GetRealEstateAgent(ctx, tenantID)
	if err != nil {
		log.Printf("[context] quick tenant lookup failed for %s: %v", tenantID, err)
		return AgentInfo{}
	}
	return AgentInfo{Name: tenant.FullName, CompanyName: tenant.CompanyName, Address: tenant.Address}
}

// QuickContactByPhone resolves the called number to a contact name for the
// outbound greeting, under the same short deadline as QuickContact.
func (b *ContextBuilder) QuickContactByPhone(ctx context.Context, tenantID, raw, normalized string) *ContactInfo {
	if raw == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
	defer cancel()

	contact, err := b.store.FindContactByPhone(ctx, tenantID, raw, normalized)
	if err != nil {
		return nil
	}
	return &ContactInfo{Name: contact.Name, PhoneNumber: contact.PhoneNumber}
}

// renderPropertiesText produces the full per-property block used on
// outbound calls, where the agent discusses specific listings.
func renderPropertiesText(props []agent.Property) string {
	if len(props) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, p := range props {
		if i >= maxPromptProperties {
			fmt.Fprintf(&sb, "\n... and %d more properties", len(props)-maxPromptProperties)
			break
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Property %d:\n", i+1)
		fmt.Fprintf(&sb, "- Address: %s", p.Address)
		if p.City != "" {
			fmt.Fprintf(&sb, ", %s", p.City)
		}
		if p.State != "" {
			fmt.Fprintf(&sb, ", %s", p.State)
		}
		sb.WriteString("\n")
		if p.PropertyType != "" {
			fmt.Fprintf(&sb, "- Type: %s\n", p.PropertyType)
		}
		if p.Price > 0 {
			fmt.Fprintf(&sb, "- Price: $%s\n", formatMoney(p.Price))
		}
		if p.Bedrooms > 0 || p.Bathrooms > 0 {
			fmt.Fprintf(&sb, "- Bedrooms: %d, Bathrooms: %d\n", p.Bedrooms, p.Bathrooms)
		}
		if p.SquareFeet > 0 {
			fmt.Fprintf(&sb, "- Square feet: %d\n", p.SquareFeet)
		}
		if p.Description != "" {
			fmt.Fprintf(&sb, "- Description: %s\n", p.Description)
		}
		if p.Amenities != "" {
			fmt.Fprintf(&sb, "- Amenities: %s\n", p.Amenities)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderPropertiesSummary produces the numbered one-line-per-listing block
// used on inbound calls.
func renderPropertiesSummary(props []agent.Property) string {
	if len(props) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, p := range props {
		if i >= maxPromptProperties {
			fmt.Fprintf(&sb, "\n... and %d more properties", len(props)-maxPromptProperties)
			break
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, p.Address)
		if p.City != "" {
			fmt.Fprintf(&sb, ", %s", p.City)
		}
		if p.Price > 0 {
			fmt.Fprintf(&sb, " - $%s", formatMoney(p.Price))
		}
		if p.Bedrooms > 0 || p.Bathrooms > 0 {
			fmt.Fprintf(&sb, " - %dbd/%dba", p.Bedrooms, p.Bathrooms)
		}
		if p.PropertyType != "" {
			fmt.Fprintf(&sb, " - %s", p.PropertyType)
		}
	}
	return sb.String()
}

// formatMoney renders a price with thousands separators and no cents.
func formatMoney(v float64) string {
	n := int64(v + 0.5)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return sign + strings.Join(parts, ",")
}
