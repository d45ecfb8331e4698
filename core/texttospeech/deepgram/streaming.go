package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-guide/core/audio"
	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/texttospeech"
)

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

func speakMsg(text string) websocketMessage {
	return websocketMessage{Type: "Speak", Text: text}
}

// Generate speaks text in a single Speak/Flush exchange and returns after the
// server confirmed the flush. Deepgram voices only speak English, so other
// languages are still sent with the configured English voice.
func (c *TextToSpeechClient) Generate(ctx context.Context, text string, lang language.Language, onAudio func([]byte)) error {
	if text == "" {
		return texttospeech.ErrEmptyText
	}
	if lang != language.English {
		log.Printf("deepgram speak: no %s voice, using %s", lang, c.voice)
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	req := &streamingRequest{ws: conn}
	defer req.Close()

	stop := context.AfterFunc(ctx, func() { _ = req.Cancel() })
	defer stop()

	if err := req.send(speakMsg(text)); err != nil {
		return texttospeech.NewSynthesisError(providerName, "send", "failed to send text", err, true)
	}
	if err := req.send(flushMsg); err != nil {
		return texttospeech.NewSynthesisError(providerName, "send", "failed to flush text", err, true)
	}

	err = req.readUntilFlushed(onAudio)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *TextToSpeechClient) connect(ctx context.Context) (*websocket.Conn, error) {
	if c.apiKey == "" {
		return nil, texttospeech.NewSynthesisError(providerName, "auth", "deepgram api key not found", texttospeech.ErrMissingAPIKey, false)
	}

	encoding, _ := convertEncoding(c.options.EncodingInfo)
	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid deepgram endpoint: %w", err)
	}
	urlValues := url.Values{}
	urlValues.Set("encoding", encoding.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	urlValues.Set("model", string(c.voice))
	urlValues.Set("container", "none")
	endpoint.RawQuery = urlValues.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, endpoint.String(), http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, texttospeech.NewSynthesisError(providerName, strconv.Itoa(resp.StatusCode), "credentials rejected", err, false)
		}
		return nil, texttospeech.NewSynthesisError(providerName, "dial", "failed to open socket connection to deepgram", err, true)
	}
	return conn, nil
}

type streamingRequest struct {
	ws *websocket.Conn
	mu sync.Mutex

	cancelled bool
	closed    bool
}

func (r *streamingRequest) readUntilFlushed(onAudio func([]byte)) error {
	for {
		msgType, msg, err := r.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if r.isCancelled() {
				return context.Canceled
			}
			return texttospeech.NewSynthesisError(providerName, "read", "speech stream interrupted", err, true)
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) > 0 && onAudio != nil {
				onAudio(msg)
			}
		case websocket.TextMessage:
			var parsedMsg struct {
				Type        string `json:"type"`
				Description string `json:"description"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				log.Printf("Failed to unmarshal deepgram message: %v", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				return nil
			case "Cleared":
				return context.Canceled
			case "Warning", "Error":
				if parsedMsg.Type == "Error" {
					return texttospeech.NewSynthesisError(providerName, "server", parsedMsg.Description, nil, false)
				}
				log.Printf("deepgram speak warning: %s", parsedMsg.Description)
			}
		}
	}
}

func (r *streamingRequest) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// Cancel asks the server to drop buffered speech and closes the socket so a
// blocked read returns.
func (r *streamingRequest) Cancel() error {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()

	err := r.send(clearMsg)
	return errors.Join(err, r.Close())
}

func (r *streamingRequest) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	writeErr := r.ws.WriteJSON(closeMsg)
	if err := r.ws.Close(); err != nil {
		return fmt.Errorf("failed to close websocket: %w", errors.Join(writeErr, err))
	}
	return nil
}

func (r *streamingRequest) send(msg websocketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.ws == nil {
		return fmt.Errorf("websocket connection closed")
	}
	if err := r.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}

func convertEncoding(encodingInfo audio.EncodingInfo) (audio.EncodingInfo, error) {
	switch encodingInfo.Format {
	case audio.EncodingLinear16:
		switch encodingInfo.SampleRate {
		case 8000, 16000, 24000, 32000, 48000:
			return encodingInfo, nil
		}
	case audio.EncodingMulaw, audio.EncodingALaw:
		if encodingInfo.SampleRate == 8000 || encodingInfo.SampleRate == 16000 {
			return encodingInfo, nil
		}
	}
	return audio.EncodingInfo{}, fmt.Errorf("deepgram speak does not support %s at %d Hz", encodingInfo.Format.Name(), encodingInfo.SampleRate)
}
