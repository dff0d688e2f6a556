package cartesia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/koscakluka/ema-voiceagent/core/agent"
	"github.com/koscakluka/ema-voiceagent/core/audio"
	"github.com/koscakluka/ema-voiceagent/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseURL = "https://api.cartesia.ai"
	APIVersion     = "2024-06-10"
	DefaultModelID = "sonic-multilingual"

	defaultTimeout = 60 * time.Second
)

var ErrMissingAPIKey = errors.New("cartesia api key not provided")

// APIError is a non-2xx answer of the Cartesia API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cartesia returned status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	apiKey     string
	baseURL    string
	voiceID    string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithDefaultVoice sets the voice used when a call does not name one.
func WithDefaultVoice(voiceID string) ClientOption {
	return func(c *Client) { c.voiceID = voiceID }
}

func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint is the synthesis endpoint the voice agent calls on our behalf,
// with the headers it has to send.
func (c *Client) Endpoint() *agent.SpeakEndpoint {
	return &agent.SpeakEndpoint{
		URL: c.baseURL + "/tts/bytes",
		Headers: map[string]string{
			"X-API-Key":        c.apiKey,
			"Cartesia-Version": APIVersion,
		},
	}
}

type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	IsPublic    bool   `json:"is_public"`
}

// ListVoices returns the voices available to the account.
func (c *Client) ListVoices(ctx context.Context) ([]Voice, error) {
	ctx, span := tracer.Start(ctx, "list cartesia voices")
	defer span.End()

	body, err := c.do(ctx, http.MethodGet, "/voices", nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}

	voices, err := decodeVoices(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("voices.count", len(voices)))
	return voices, nil
}

// decodeVoices accepts both the plain list and the paginated form of the
// voices listing.
func decodeVoices(body []byte) ([]Voice, error) {
	var voices []Voice
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &voices); err != nil {
			return nil, fmt.Errorf("failed to unmarshal voices: %w", err)
		}
		return voices, nil
	}

	var page struct {
		Data []Voice `json:"data"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal voices: %w", err)
	}
	return page.Data, nil
}

type ttsRequest struct {
	ModelID      string       `json:"model_id"`
	Transcript   string       `json:"transcript"`
	Voice        voiceSpec    `json:"voice"`
	OutputFormat outputFormat `json:"output_format"`
	Language     string       `json:"language,omitempty"`
}

type voiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type outputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize renders text as raw audio, 16-bit little endian PCM at 24 kHz
// unless another encoding is requested.
func (c *Client) Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) ([]byte, error) {
	options := texttospeech.SynthesisOptions{
		VoiceID:      c.voiceID,
		ModelID:      DefaultModelID,
		EncodingInfo: audio.GetOutputEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("tts.model", options.ModelID),
		attribute.String("tts.language", options.Language),
	)

	if options.VoiceID == "" {
		err := fmt.Errorf("no voice selected")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	encoding, err := pcmEncoding(options.EncodingInfo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	payload, err := json.Marshal(ttsRequest{
		ModelID:    options.ModelID,
		Transcript: text,
		Voice:      voiceSpec{Mode: "id", ID: options.VoiceID},
		OutputFormat: outputFormat{
			Container:  "raw",
			Encoding:   encoding,
			SampleRate: options.EncodingInfo.SampleRate,
		},
		Language: options.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	audioData, err := c.do(ctx, http.MethodPost, "/tts/bytes", payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	span.SetAttributes(attribute.Int("tts.audio_bytes", len(audioData)))
	logger.Debug("synthesized speech", "bytes", len(audioData), "duration", options.EncodingInfo.Duration(len(audioData)).String())
	return audioData, nil
}

func pcmEncoding(info audio.EncodingInfo) (string, error) {
	switch info.Format {
	case audio.EncodingLinear16:
		return "pcm_s16le", nil
	case audio.EncodingMulaw:
		return "pcm_mulaw", nil
	case audio.EncodingALaw:
		return "pcm_alaw", nil
	}
	return "", fmt.Errorf("unsupported encoding %q", info.Format.Name())
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", APIVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}
