package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voiceagent/core/audio"
	"github.com/koscakluka/ema-voiceagent/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultListenURL = "wss://api.deepgram.com/v1/listen"
	DefaultModel     = "nova-3"
	DefaultLanguage  = "multi"

	chunkDuration = 100 * time.Millisecond
)

var ErrMissingAPIKey = errors.New("deepgram api key not provided")

// TranscriptionClient turns recorded audio back into text through the live
// listen endpoint.
type TranscriptionClient struct {
	apiKey string
	url    string
	model  string
}

type ClientOption func(*TranscriptionClient)

func WithURL(listenURL string) ClientOption {
	return func(c *TranscriptionClient) { c.url = listenURL }
}

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) { c.model = model }
}

func NewTranscriptionClient(apiKey string, opts ...ClientOption) (*TranscriptionClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &TranscriptionClient{apiKey: apiKey, url: DefaultListenURL, model: DefaultModel}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TranscribeFile transcribes a raw PCM file as written by the session
// orchestrator.
func (c *TranscriptionClient) TranscribeFile(ctx context.Context, path string, opts ...speechtotext.TranscriptionOption) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}
	return c.Transcribe(ctx, data, opts...)
}

// Transcribe streams data to the listen endpoint, asks it to close the
// stream and returns every finalized segment joined by spaces.
func (c *TranscriptionClient) Transcribe(ctx context.Context, data []byte, opts ...speechtotext.TranscriptionOption) (string, error) {
	options := speechtotext.TranscriptionOptions{
		Language:     DefaultLanguage,
		EncodingInfo: audio.GetOutputEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, span := tracer.Start(ctx, "transcribe agent audio")
	defer span.End()
	span.SetAttributes(
		attribute.Int("audio.bytes", len(data)),
		attribute.String("stt.language", options.Language),
	)

	transcript, err := c.transcribe(ctx, data, options)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if options.TranscriptionCallback != nil {
		options.TranscriptionCallback(transcript)
	}
	return transcript, nil
}

func (c *TranscriptionClient) transcribe(ctx context.Context, data []byte, options speechtotext.TranscriptionOptions) (string, error) {
	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return "", fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := c.connectWebsocket(ctx, connectionOptions{
		sampleRate:     encoding.SampleRate,
		encoding:       encoding.Format.Name(),
		language:       options.Language,
		interimResults: options.InterimTranscriptionCallback != nil,
	})
	if err != nil {
		return "", fmt.Errorf("failed to open websocket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s := &stream{conn: conn}
	sendErr := make(chan error, 1)
	go func() {
		sendErr <- s.sendAudio(data, options.EncodingInfo.ChunkSize(chunkDuration))
	}()

	segments, readErr := s.readTranscripts(options)
	if readErr != nil {
		conn.Close()
	}
	if err := <-sendErr; err != nil && readErr == nil && ctx.Err() == nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if readErr != nil {
		return "", readErr
	}

	return strings.Join(segments, " "), nil
}

type connectionOptions struct {
	sampleRate     int
	encoding       string
	language       string
	interimResults bool
}

func (c *TranscriptionClient) connectWebsocket(ctx context.Context, options connectionOptions) (*websocket.Conn, error) {
	listenURL, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("invalid listen url: %w", err)
	}

	queryParams := listenURL.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", c.model)
	if options.language != "" {
		queryParams.Set("language", options.language)
	}
	queryParams.Set("smart_format", "true")
	queryParams.Set("punctuate", "true")
	if options.interimResults {
		queryParams.Set("interim_results", "true")
	}
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

type stream struct {
	conn   *websocket.Conn
	connMu sync.Mutex
}

func (s *stream) sendAudio(data []byte, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = len(data)
	}

	for start := 0; start < len(data); start += chunkSize {
		end := min(start+chunkSize, len(data))
		if err := s.write(websocket.BinaryMessage, data[start:end]); err != nil {
			return fmt.Errorf("failed to write to deepgram client: %w", err)
		}
	}

	closeStream, err := json.Marshal(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)})
	if err != nil {
		return fmt.Errorf("failed to marshal close stream message: %w", err)
	}
	if err := s.write(websocket.TextMessage, closeStream); err != nil {
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	return nil
}

func (s *stream) write(messageType int, data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn.WriteMessage(messageType, data)
}

// readTranscripts collects finalized segments until the server closes the
// connection.
func (s *stream) readTranscripts(options speechtotext.TranscriptionOptions) ([]string, error) {
	var segments []string
	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return segments, nil
			}
			return segments, fmt.Errorf("failed to read deepgram websocket message: %w", err)
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		if segment, ok := processMessage(msg, options); ok {
			segments = append(segments, segment)
		}
	}
}

func processMessage(msg []byte, options speechtotext.TranscriptionOptions) (string, bool) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return "", false
	}

	if api.TypeResponse(parsedMsg.Type) != api.TypeMessageResponse {
		return "", false
	}

	var msgResp api.MessageResponse
	if err := json.Unmarshal(msg, &msgResp); err != nil {
		logger.Warn("failed to unmarshal deepgram results", "error", err)
		return "", false
	}
	if len(msgResp.Channel.Alternatives) == 0 {
		return "", false
	}

	transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
	if transcript == "" {
		return "", false
	}

	if !msgResp.IsFinal {
		if options.InterimTranscriptionCallback != nil {
			options.InterimTranscriptionCallback(transcript)
		}
		return "", false
	}

	if options.PartialTranscriptionCallback != nil {
		options.PartialTranscriptionCallback(transcript)
	}
	return transcript, true
}
