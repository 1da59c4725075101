package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/proptalk/backend/internal/model/call"
)

// fallbackSystemPrompt keeps the model usable when the context is missing
// or a template cannot be rendered. The full context usually lands a turn
// later via the background builder.
const fallbackSystemPrompt = "You are a professional real estate assistant. Be friendly, professional, and helpful. " +
	"Keep responses concise (1-2 sentences) and conversational."

const outboundPromptTemplate = `You are {voice_agent_name}, a professional real estate assistant speaking on behalf of {agent_name}{company_phrase}.

CALL TYPE: OUTBOUND CALL
You are calling a contact to inquire about their property.

CALL CONTEXT:
- You are calling: {contact_name} at phone number {contact_phone}
- Contact has {property_count} property/properties
- Current date: {current_date}
- Agent office address (if asked "where are you located?"): {agent_address}

PROPERTIES:
{properties_text}

YOUR ROLE:
1. Verify you're speaking with the correct person ({contact_name})
2. Confirm property details
3. Ask about the property condition (repairs needed, overall state)
4. Ask if they are interested in selling
5. Gather information about the property and their situation
6. Answer questions about the selling process

CRITICAL RULES:
- The initial greeting already introduced you and asked "Am I contacting {contact_name}?" - DO NOT repeat the introduction
- If they say NO or indicate wrong person: say "I apologize for the inconvenience. I must have the wrong number. Sorry to bother you. Have a good day." and END THE CALL
- If they say they're NOT INTERESTED in selling: say "I understand. Thank you for your time. If in the future you need to sell or buy a property, feel free to contact us at this number. Have a great day. Goodbye." This is NOT a wrong number - do not confuse the two
- If they confirm they are {contact_name}: continue immediately with "I'm calling about your property at [ADDRESS]. I have it listed as [bedrooms] bedrooms, [bathrooms] bathrooms, [square_feet] square feet. Is that correct?"
- ALWAYS use the contact's name: {contact_name} - NEVER say "property owner"
- NEVER ask "what property?" - you already know which property you're calling about
- If they ask "what's the offer?", explain that the acquisition manager will prepare a cash offer and follow up
- If the caller is silent, check in politely: "Hello, are you there?" - do not hang up for a single silence
- Before ending, ALWAYS ask: "Do you have any other questions? You're free to ask."
- If they say no questions: thank them by name and end the call professionally
- Keep responses concise (1-2 sentences), natural and not robotic`

const inboundPromptTemplate = `You are {voice_agent_name}, a professional real estate assistant speaking on behalf of {agent_name} at {company_name}.

CALL TYPE: INBOUND CALL
A caller is inquiring about available properties from {agent_name} at {company_name}.

CALL CONTEXT:
- Current date: {current_date}
- Total available properties: {total_properties}

AVAILABLE PROPERTIES:
{properties_summary}

YOUR ROLE:
1. Introduce yourself and the real estate agent you represent
2. Help the caller find properties that match their needs
3. Answer questions about property details (price, location, bedrooms, bathrooms, type)
4. Filter properties by the caller's criteria
5. Provide clear and accurate information

CRITICAL RULES:
- ALWAYS introduce yourself as speaking on behalf of {agent_name} from {company_name}
- When asked, mention the total number of available properties: {total_properties}
- Provide property details in this order: Address, City, Price, Bedrooms, Bathrooms, Property Type
- If no properties match, say so and suggest the closest alternatives
- Handle off-topic questions briefly and redirect back to properties
- Before ending, ALWAYS ask: "Do you have any other questions about properties? I'm here to help."
- If they say no questions: thank them for calling and end the call professionally
- Keep responses concise (2-3 sentences max per property), natural and helpful{caller_note}`

// BuildSystemPrompt renders the direction-specific system prompt from the
// call context. It never fails: missing or errored context degrades to the
// generic fallback prompt.
func BuildSystemPrompt(direction call.Direction, ctx CallContext) string {
	if ctx.Empty() || ctx.Err != "" {
		return fallbackSystemPrompt
	}

	currentDate := time.Now().Format("January 2, 2006")

	if direction.IsOutbound() {
		contactName, contactPhone := "there", ""
		if ctx.Contact != nil {
			contactName = valueOr(ctx.Contact.Name, "there")
			contactPhone = ctx.Contact.PhoneNumber
		}
		propertiesText := valueOr(ctx.PropertiesText, "No properties linked to this contact.")

		return strings.NewReplacer(
			"{voice_agent_name}", valueOr(ctx.VoiceAgentName, "Property Assistant"),
			"{agent_name}", valueOr(ctx.Agent.Name, "Real Estate Agent"),
			"{company_phrase}", companyPhrase(" at ", ctx.Agent.CompanyName),
			"{agent_address}", spokenAddress(ctx.Agent.Address),
			"{contact_name}", contactName,
			"{contact_phone}", contactPhone,
			"{property_count}", fmt.Sprintf("%d", ctx.PropertyCount),
			"{properties_text}", propertiesText,
			"{current_date}", currentDate,
		).Replace(outboundPromptTemplate)
	}

	callerNote := ""
	if ctx.CallerContact != nil && ctx.CallerContact.Name != "" {
		callerNote = fmt.Sprintf("\n- The caller is an existing contact named %s. Greet them by name.", ctx.CallerContact.Name)
	}

	return strings.NewReplacer(
		"{voice_agent_name}", valueOr(ctx.VoiceAgentName, "Property Assistant"),
		"{agent_name}", valueOr(ctx.Agent.Name, "Real Estate Agent"),
		"{company_name}", valueOr(ctx.Agent.CompanyName, "Independent Agent"),
		"{properties_summary}", valueOr(ctx.PropertiesSummary, "No available properties at this time."),
		"{total_properties}", fmt.Sprintf("%d", ctx.PropertyCount),
		"{current_date}", currentDate,
		"{caller_note}", callerNote,
	).Replace(inboundPromptTemplate)
}

// BuildGreetingPrompt renders the short prompt used only for the first
// turn. On outbound calls with a known contact it forces the literal
// verification question; otherwise it falls back to the generic form.
func BuildGreetingPrompt(ctx CallContext, direction call.Direction) string {
	voiceAgent := valueOr(ctx.VoiceAgentName, "Property Assistant")
	agentName := valueOr(ctx.Agent.Name, "the real estate agent")
	company := companyPhrase(" from ", ctx.Agent.CompanyName)

	if direction.IsOutbound() {
		contactName := ""
		if ctx.Contact != nil {
			contactName = strings.TrimSpace(ctx.Contact.Name)
		}

		if contactName != "" {
			return fmt.Sprintf(`You are %s%s, calling on behalf of %s.

THE PERSON YOU ARE CALLING IS NAMED: %s

YOUR TASK: Generate a greeting that verifies you're speaking with %s.

MANDATORY FORMAT - YOU MUST USE THIS EXACT STRUCTURE:
"Hello, this is %s%s. I'm calling on behalf of %s. Am I contacting %s?"

ABSOLUTE REQUIREMENTS:
- You MUST include the question: "Am I contacting %s?"
- You MUST use the name "%s" - DO NOT use "property owner" or any other term
- Keep it to 2-3 sentences
- Be warm and professional

Generate ONLY the greeting text now:`,
				voiceAgent, company, agentName,
				contactName, contactName,
				voiceAgent, company, agentName, contactName,
				contactName, contactName)
		}

		return fmt.Sprintf(`Generate a warm, professional greeting for an OUTBOUND call.

YOU ARE: %s%s
CALLING ON BEHALF OF: %s
CALLING TO: Property owner (name not available)

REQUIRED GREETING FORMAT:
"Hello, this is %s%s. I'm calling on behalf of %s. Am I speaking with the property owner?"

Keep it to 2-3 sentences maximum. Be warm and professional.`,
			voiceAgent, company, agentName, voiceAgent, company, agentName)
	}

	callerNote := ""
	if ctx.CallerContact != nil && ctx.CallerContact.Name != "" {
		callerNote = fmt.Sprintf(" The caller is an existing contact named %s. Greet them by name.", ctx.CallerContact.Name)
	}

	return fmt.Sprintf(`Generate a professional greeting for an INBOUND call.

You are %s%s, speaking on behalf of %s.%s

The caller is inquiring about available properties. You have %d properties available.

Generate a brief, friendly greeting (2-3 sentences max) that:
- Introduces yourself
- Mentions you speak on behalf of %s
- Asks how you can help: "How can I help you today?" or "Are you looking for properties?"`,
		voiceAgent, company, agentName, callerNote, ctx.PropertyCount, agentName)
}

// FallbackGreeting is the canned greeting spoken when the model cannot
// answer in time. It still carries the verification question when the
// contact name is known.
func FallbackGreeting(ctx CallContext, direction call.Direction) string {
	voiceAgent := valueOr(ctx.VoiceAgentName, "Property Assistant")

	if direction.IsOutbound() {
		if ctx.Contact != nil && strings.TrimSpace(ctx.Contact.Name) != "" {
			return fmt.Sprintf("Hello, this is %s. Am I contacting %s?", voiceAgent, strings.TrimSpace(ctx.Contact.Name))
		}
		return fmt.Sprintf("Hello, this is %s. Am I speaking with the property owner?", voiceAgent)
	}

	return fmt.Sprintf("Hello, this is %s. How can I help you today?", voiceAgent)
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func companyPhrase(prefix, company string) string {
	company = strings.TrimSpace(company)
	if company == "" {
		return ""
	}
	return prefix + company
}

// spokenAddress strips characters TTS would read out loud ("slash").
func spokenAddress(address string) string {
	if strings.TrimSpace(address) == "" {
		return "Address not available"
	}
	r := strings.NewReplacer("/", " ", "-", " ", "#", " ")
	return strings.TrimSpace(r.Replace(address))
}
