// Package elevenlabs generates speech with the ElevenLabs multilingual model,
// which is what the guide uses for Swahili.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/koscakluka/ema-guide/core/audio"
	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	providerName   = "elevenlabs"
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultModel   = "eleven_multilingual_v2"
	defaultVoice   = "21m00Tcm4TlvDq8ikWAM"

	chunkSize = 4096
)

type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	options    texttospeech.TextToSpeechOptions
}

type ClientOption func(*Client)

// WithAPIKey overrides the ELEVENLABS_API_KEY environment variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

func WithTextToSpeechOptions(opts ...texttospeech.TextToSpeechOption) ClientOption {
	return func(c *Client) { c.options = texttospeech.NewTextToSpeechOptions(opts...) }
}

func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		apiKey:     os.Getenv("ELEVENLABS_API_KEY"),
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		options:    texttospeech.NewTextToSpeechOptions(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.options.Voice == "" {
		client.options.Voice = defaultVoice
	}
	if _, err := outputFormat(client.options.EncodingInfo); err != nil {
		return nil, err
	}
	return client, nil
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	LanguageCode  string        `json:"language_code,omitempty"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Generate streams raw PCM for text. Chunks keep whole samples together.
func (c *Client) Generate(ctx context.Context, text string, lang language.Language, onAudio func([]byte)) error {
	if text == "" {
		return texttospeech.ErrEmptyText
	}
	if c.apiKey == "" {
		return texttospeech.NewSynthesisError(providerName, "auth", "elevenlabs api key not found", texttospeech.ErrMissingAPIKey, false)
	}

	format, _ := outputFormat(c.options.EncodingInfo)
	body, err := json.Marshal(speechRequest{
		Text:          text,
		ModelID:       c.model,
		LanguageCode:  lang.OrDefault().String(),
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return fmt.Errorf("failed to encode speech request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s/stream?%s",
		c.baseURL, url.PathEscape(c.options.Voice), url.Values{"output_format": {format}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create speech request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return texttospeech.NewSynthesisError(providerName, "request", "request failed", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return handleError(resp)
	}

	sampleSize := max(c.options.EncodingInfo.Format.ByteSize(), 1)
	buffer := make([]byte, chunkSize)
	var carry []byte
	for {
		n, readErr := resp.Body.Read(buffer)
		if n > 0 {
			data := append(carry, buffer[:n]...)
			whole := len(data) - len(data)%sampleSize
			if whole > 0 && onAudio != nil {
				onAudio(bytes.Clone(data[:whole]))
			}
			carry = bytes.Clone(data[whole:])
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return texttospeech.NewSynthesisError(providerName, "read", "speech stream interrupted", readErr, true)
		}
	}
}

type errorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

func handleError(resp *http.Response) error {
	code := strconv.Itoa(resp.StatusCode)
	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Detail.Message == "" {
		return texttospeech.NewSynthesisError(providerName, code, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil, retryable)
	}

	message := errResp.Detail.Message
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		message = "rate limited: " + message
	case http.StatusUnauthorized:
		message = "invalid api key: " + message
	}
	if errResp.Detail.Status != "" {
		code = errResp.Detail.Status
	}
	return texttospeech.NewSynthesisError(providerName, code, message, nil, retryable)
}

func outputFormat(encodingInfo audio.EncodingInfo) (string, error) {
	switch encodingInfo.Format {
	case audio.EncodingLinear16:
		switch encodingInfo.SampleRate {
		case 16000, 22050, 24000, 44100:
			return "pcm_" + strconv.Itoa(encodingInfo.SampleRate), nil
		}
	case audio.EncodingMulaw:
		if encodingInfo.SampleRate == 8000 {
			return "ulaw_8000", nil
		}
	}
	return "", fmt.Errorf("elevenlabs does not support %s at %d Hz", encodingInfo.Format.Name(), encodingInfo.SampleRate)
}
