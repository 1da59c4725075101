package agent

// VoiceAgent is the AI caller configuration owned by a real-estate agent.
type VoiceAgent struct {
	ID                string `json:"id"`
	RealEstateAgentID string `json:"realEstateAgentId"`
	PhoneNumberID     string `json:"phoneNumberId"`
	Name              string `json:"name"`
	SystemPrompt      string `json:"systemPrompt,omitempty"`
	Status            string `json:"status"` // "active" or "inactive"
}

// RealEstateAgent is the tenant the voice agent speaks on behalf of.
type RealEstateAgent struct {
	ID          string `json:"id"`
	FullName    string `json:"fullName"`
	CompanyName string `json:"companyName,omitempty"`
	Address     string `json:"address,omitempty"`
}

// Contact is a person the tenant may call about their property.
type Contact struct {
	ID                string `json:"id"`
	RealEstateAgentID string `json:"realEstateAgentId"`
	Name              string `json:"name"`
	PhoneNumber       string `json:"phoneNumber"`
	Email             string `json:"email,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// Property is a listing linked to a tenant and optionally a contact.
type Property struct {
	ID                string  `json:"id"`
	RealEstateAgentID string  `json:"realEstateAgentId"`
	ContactID         string  `json:"contactId,omitempty"`
	Address           string  `json:"address"`
	City              string  `json:"city,omitempty"`
	State             string  `json:"state,omitempty"`
	PropertyType      string  `json:"propertyType,omitempty"`
	Price             float64 `json:"price,omitempty"`
	Bedrooms          int     `json:"bedrooms,omitempty"`
	Bathrooms         int     `json:"bathrooms,omitempty"`
	SquareFeet        int     `json:"squareFeet,omitempty"`
	IsAvailable       bool    `json:"isAvailable"`
	Description       string  `json:"description,omitempty"`
	Amenities         string  `json:"amenities,omitempty"`
}

// PhoneNumber binds a provisioned telephony number to a voice agent.
type PhoneNumber struct {
	ID                string `json:"id"`
	TwilioPhoneNumber string `json:"twilioPhoneNumber"`
	IsActive          bool   `json:"isActive"`
}

// Binding is the resolved phone-to-agent mapping the webhook path needs.
type Binding struct {
	VoiceAgentID      string `json:"voiceAgentId"`
	VoiceAgentName    string `json:"voiceAgentName"`
	RealEstateAgentID string `json:"realEstateAgentId"`
}
