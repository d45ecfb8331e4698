package deepgram

import (
	"fmt"
	"os"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-guide/core/texttospeech"
)

const (
	providerName    = "deepgram"
	defaultEndpoint = "wss://api.deepgram.com/v1/speak"
)

type deepgramVoice string

const defaultVoice deepgramVoice = "aura-asteria-en"

var availableVoices = []deepgramVoice{
	"aura-asteria-en", "aura-luna-en", "aura-stella-en", "aura-athena-en",
	"aura-hera-en", "aura-orion-en", "aura-arcas-en", "aura-perseus-en",
	"aura-angus-en", "aura-orpheus-en", "aura-helios-en", "aura-zeus-en",
}

func GetAvailableVoices() []deepgramVoice {
	return slices.Clone(availableVoices)
}

// TextToSpeechClient generates speech over Deepgram's streaming speak API.
// Every utterance gets its own connection.
type TextToSpeechClient struct {
	apiKey   string
	endpoint string
	voice    deepgramVoice
	dialer   *websocket.Dialer
	options  texttospeech.TextToSpeechOptions
}

type ClientOption func(*TextToSpeechClient)

// WithAPIKey overrides the DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *TextToSpeechClient) { c.apiKey = apiKey }
}

func WithEndpoint(endpoint string) ClientOption {
	return func(c *TextToSpeechClient) { c.endpoint = endpoint }
}

func WithTextToSpeechOptions(opts ...texttospeech.TextToSpeechOption) ClientOption {
	return func(c *TextToSpeechClient) { c.options = texttospeech.NewTextToSpeechOptions(opts...) }
}

func NewTextToSpeechClient(opts ...ClientOption) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{
		apiKey:   os.Getenv("DEEPGRAM_API_KEY"),
		endpoint: defaultEndpoint,
		voice:    defaultVoice,
		dialer:   websocket.DefaultDialer,
		options:  texttospeech.NewTextToSpeechOptions(),
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.options.Voice != "" {
		if !slices.Contains(availableVoices, deepgramVoice(client.options.Voice)) {
			return nil, fmt.Errorf("invalid voice %q", client.options.Voice)
		}
		client.voice = deepgramVoice(client.options.Voice)
	}
	if _, err := convertEncoding(client.options.EncodingInfo); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *TextToSpeechClient) Voice() string { return string(c.voice) }
