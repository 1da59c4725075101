package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// Config aggregates every setting the service needs.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	AI       AIConfig
	Twilio   TwilioConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Database: loadDatabaseConfig(),
		AI:       ai,
		Twilio:   loadTwilioConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// DatabaseConfig locates the sqlite datastore.
type DatabaseConfig struct {
	Path string
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{Path: getEnvOrDefault("DATABASE_PATH", "proptalk.db")}
}

// AIConfig describes the Gemini model used for call dialogue.
type AIConfig struct {
	APIKey      string
	Model       string
	Temperature *float64
	MaxTokens   *int

	// Per-call budgets. Every reply on the webhook path must come back
	// well under Twilio's response deadline, so these stay small.
	ReplyTimeout    time.Duration
	GreetingTimeout time.Duration
	SummaryTimeout  time.Duration
}

// Enabled reports whether the required Gemini credentials are present.
func (c AIConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewChatModel builds the eino chat model backed by Gemini.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("gemini credentials missing: set GEMINI_API_KEY (and optionally GEMINI_MODEL)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	return gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("GEMINI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("GEMINI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	replyTimeout, err := parseDurationEnv("LLM_REPLY_TIMEOUT", 2500*time.Millisecond)
	if err != nil {
		return AIConfig{}, err
	}

	greetingTimeout, err := parseDurationEnv("LLM_GREETING_TIMEOUT", 2*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	summaryTimeout, err := parseDurationEnv("LLM_SUMMARY_TIMEOUT", 10*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:          strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:           getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		Temperature:     temperature,
		MaxTokens:       maxTokens,
		ReplyTimeout:    replyTimeout,
		GreetingTimeout: greetingTimeout,
		SummaryTimeout:  summaryTimeout,
	}, nil
}

// TwilioConfig carries the REST credentials plus the public webhook base URL
// Twilio calls back into.
type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	WebhookBaseURL string
}

// Enabled reports whether outbound calls can be placed.
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.WebhookBaseURL != ""
}

// VoiceURL returns the voice webhook endpoint Twilio should request.
func (c TwilioConfig) VoiceURL() string {
	return strings.TrimRight(c.WebhookBaseURL, "/") + "/webhooks/twilio/voice"
}

// StatusURL returns the call-status callback endpoint.
func (c TwilioConfig) StatusURL() string {
	return strings.TrimRight(c.WebhookBaseURL, "/") + "/webhooks/twilio/status"
}

// RecordingURL returns the recording callback endpoint.
func (c TwilioConfig) RecordingURL() string {
	return strings.TrimRight(c.WebhookBaseURL, "/") + "/webhooks/twilio/recording"
}

func loadTwilioConfig() TwilioConfig {
	return TwilioConfig{
		AccountSID:     strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
		AuthToken:      strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
		WebhookBaseURL: strings.TrimSpace(os.Getenv("TWILIO_VOICE_WEBHOOK_URL")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
