package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-guide/core/audio"
	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/speechtotext"
)

const defaultEndpoint = "wss://api.deepgram.com/v1/listen"

type TranscriptionClient struct {
	apiKey   string
	endpoint string
	model    string
	dialer   *websocket.Dialer
	options  speechtotext.TranscriptionOptions

	connMu    sync.Mutex
	conn      *websocket.Conn
	cancel    context.CancelFunc
	stopping  atomic.Bool
	lastMsgTs atomic.Int64

	// Only touched by the read loop.
	accumulatedTranscript string
	unendedSegment        bool
}

type ClientOption func(*TranscriptionClient)

// WithAPIKey overrides the DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *TranscriptionClient) { c.apiKey = apiKey }
}

func WithEndpoint(endpoint string) ClientOption {
	return func(c *TranscriptionClient) { c.endpoint = endpoint }
}

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) { c.model = model }
}

func WithTranscriptionOptions(opts ...speechtotext.TranscriptionOption) ClientOption {
	return func(c *TranscriptionClient) { c.options = speechtotext.NewTranscriptionOptions(opts...) }
}

func NewTranscriptionClient(opts ...ClientOption) *TranscriptionClient {
	client := &TranscriptionClient{
		apiKey:   os.Getenv("DEEPGRAM_API_KEY"),
		endpoint: defaultEndpoint,
		model:    "nova-2",
		dialer:   websocket.DefaultDialer,
		options:  speechtotext.NewTranscriptionOptions(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (s *TranscriptionClient) Start(ctx context.Context, lang language.Language, onResult func(speechtotext.Transcript), onError func(error)) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn != nil {
		return fmt.Errorf("deepgram transcription already started")
	}
	if s.apiKey == "" {
		return speechtotext.NewError(speechtotext.ErrorPermissionDenied, fmt.Errorf("deepgram api key not found"))
	}

	encoding, err := convertEncoding(s.options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := s.connectWebsocket(ctx, connectionOptions{
		sampleRate:        encoding.SampleRate,
		encoding:          encoding.Format.Name(),
		language:          languageCode(lang),
		detectSpeechStart: s.options.SpeechStartedCallback != nil,
		interimResults:    s.options.InterimResults,
	})
	if err != nil {
		return err
	}

	if onResult == nil {
		onResult = func(speechtotext.Transcript) {}
	}
	if onError == nil {
		onError = func(error) {}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.conn = conn
	s.cancel = cancel
	s.stopping.Store(false)
	s.accumulatedTranscript = ""
	s.unendedSegment = false
	s.lastMsgTs.Store(time.Now().UnixNano())

	go s.readAndProcessMessages(runCtx, conn, onResult, onError)
	return nil
}

type connectionOptions struct {
	sampleRate int
	encoding   string
	language   string

	detectSpeechStart bool
	interimResults    bool
}

func (s *TranscriptionClient) connectWebsocket(ctx context.Context, options connectionOptions) (*websocket.Conn, error) {
	listenUrl, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid deepgram endpoint: %w", err)
	}
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", s.model)
	queryParams.Set("language", options.language)
	queryParams.Set("smart_format", "true")
	// Utterance end detection needs interim results even when the caller
	// does not want them.
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")

	listenUrl.RawQuery = queryParams.Encode()
	conn, resp, err := s.dialer.DialContext(ctx, listenUrl.String(),
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, speechtotext.NewError(speechtotext.ErrorPermissionDenied,
				fmt.Errorf("deepgram rejected credentials: %s", resp.Status))
		}
		return nil, speechtotext.NewError(speechtotext.ErrorNetwork,
			fmt.Errorf("failed to open socket connection to deepgram: %w", err))
	}

	return conn, nil
}

func languageCode(lang language.Language) string {
	if lang == language.Swahili {
		return "sw"
	}
	return "en-US"
}

func (s *TranscriptionClient) Stop() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return nil
	}
	s.stopping.Store(true)

	var errs []error
	if err := s.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		errs = append(errs, fmt.Errorf("failed to close deepgram stream: %w", err))
	}
	if err := s.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close deepgram websocket: %w", err))
	}
	s.conn = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return errors.Join(errs...)
}

func (s *TranscriptionClient) SendAudio(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return speechtotext.ErrNotStarted
	}

	s.lastMsgTs.Store(time.Now().UnixNano())
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return speechtotext.NewError(speechtotext.ErrorNetwork, fmt.Errorf("failed to write to deepgram client: %w", err))
	}
	return nil
}

func (s *TranscriptionClient) sendSilence(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return nil
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (s *TranscriptionClient) sendKeepAlive() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return
	}
	if err := s.conn.WriteJSON(
		struct {
			Type string `json:"type"`
		}{
			Type: "KeepAlive",
		}); err != nil {
		log.Println("Failed to write to deepgram client", "error", err)
	}
}

func (s *TranscriptionClient) readAndProcessMessages(ctx context.Context, conn *websocket.Conn, onResult func(speechtotext.Transcript), onError func(error)) {
	silenceCtx, silenceCancel := context.WithCancel(ctx)
	defer silenceCancel()

	go s.generateSilence(silenceCtx, s.options.EncodingInfo)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			s.connMu.Lock()
			if s.conn == conn {
				s.conn = nil
			}
			s.connMu.Unlock()
			conn.Close()

			switch {
			case s.stopping.Load():
			case ctx.Err() != nil:
				onError(speechtotext.NewError(speechtotext.ErrorAborted, ctx.Err()))
			case websocket.IsCloseError(err, websocket.CloseNormalClosure):
				onError(speechtotext.NewError(speechtotext.ErrorAborted, err))
			default:
				log.Println("Failed to read deepgram websocket message", "error", err)
				onError(speechtotext.NewError(speechtotext.ErrorNetwork, err))
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			s.processMessage(msg, onResult, onError)
		}
	}
}

func (s *TranscriptionClient) processMessage(msg []byte, onResult func(speechtotext.Transcript), onError func(error)) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	err := json.Unmarshal(msg, &parsedMsg)
	if err != nil {
		log.Println("Failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}
		if len(msgResp.Channel.Alternatives) == 0 {
			if msgResp.IsFinal && msgResp.SpeechFinal {
				s.onSpeechEnded(onResult, onError)
			}
			return
		}

		alternative := msgResp.Channel.Alternatives[0]
		transcript := strings.TrimSpace(alternative.Transcript)
		if msgResp.IsFinal {
			if len(transcript) > 0 {
				s.accumulatedTranscript += " " + transcript
			}
			if msgResp.SpeechFinal {
				s.onSpeechEnded(onResult, onError)
			}
			return
		}

		if s.options.InterimResults && len(transcript) > 0 {
			onResult(speechtotext.Transcript{
				Text:       strings.TrimSpace(s.accumulatedTranscript + " " + transcript),
				Confidence: alternative.Confidence,
			})
		}

	case api.TypeUtteranceEndResponse:
		if s.unendedSegment {
			s.onSpeechEnded(onResult, onError)
		}

	case api.TypeSpeechStartedResponse:
		s.unendedSegment = true
		if s.options.SpeechStartedCallback != nil {
			s.options.SpeechStartedCallback()
		}
	}
}

func (s *TranscriptionClient) onSpeechEnded(onResult func(speechtotext.Transcript), onError func(error)) {
	s.unendedSegment = false
	fullTranscript := strings.TrimSpace(s.accumulatedTranscript)
	s.accumulatedTranscript = ""
	if len(fullTranscript) == 0 {
		onError(speechtotext.NewError(speechtotext.ErrorNoSpeech, nil))
		return
	}
	onResult(speechtotext.Transcript{Text: fullTranscript, IsFinal: true})
}

// generateSilence keeps deepgram's endpointing working while no audio is
// sent: short silence first, then periodic keep-alives.
func (s *TranscriptionClient) generateSilence(ctx context.Context, encoding audio.EncodingInfo) {
	type silenceGeneratorState string
	const (
		silenceGeneratorStateWaiting   silenceGeneratorState = "waiting"
		silenceGeneratorStateSilence   silenceGeneratorState = "silence"
		silenceGeneratorStateKeepAlive silenceGeneratorState = "keepAlive"
	)

	const chunkDuration = 50 * time.Millisecond
	ticker := time.NewTicker(chunkDuration)
	defer ticker.Stop()

	chunk := make([]byte, encoding.SampleRate*encoding.Format.ByteSize()*int(chunkDuration/time.Millisecond)/1000)
	for i := range chunk {
		chunk[i] = encoding.SilenceValue()
	}

	sinceLastAudio := func() time.Duration {
		return time.Since(time.Unix(0, s.lastMsgTs.Load()))
	}

	var state = silenceGeneratorStateWaiting
	var firstSilenceTime, lastKeepAliveTime time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			switch state {
			case silenceGeneratorStateWaiting:
				if sinceLastAudio() > chunkDuration {
					state = silenceGeneratorStateSilence
					firstSilenceTime = time.Now()
				}

			case silenceGeneratorStateSilence:
				if sinceLastAudio() < chunkDuration {
					state = silenceGeneratorStateWaiting
					continue
				}
				if time.Since(firstSilenceTime) >= time.Second {
					state = silenceGeneratorStateKeepAlive
					lastKeepAliveTime = time.Now()
					continue
				}

				if err := s.sendSilence(chunk); err != nil {
					log.Println("Sending silence audio error", err)
				}

			case silenceGeneratorStateKeepAlive:
				if sinceLastAudio() < chunkDuration {
					state = silenceGeneratorStateWaiting
					continue
				}

				if time.Since(lastKeepAliveTime) >= 5*time.Second {
					lastKeepAliveTime = time.Now()
					s.sendKeepAlive()
				}
			}
		}
	}
}
