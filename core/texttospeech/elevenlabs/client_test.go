package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/texttospeech"
)

func TestGenerateStreamsWholeSamples(t *testing.T) {
	var received speechRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("expected api key header, got %q", r.Header.Get("xi-api-key"))
		}
		if r.URL.Path != "/text-to-speech/"+defaultVoice+"/stream" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "pcm_16000" {
			t.Errorf("expected pcm_16000, got %q", r.URL.Query().Get("output_format"))
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		_, _ = w.Write([]byte{1, 2, 3, 4, 5})
	}))
	defer server.Close()

	client, err := NewClient(WithAPIKey("test-key"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}

	var audio []byte
	err = client.Generate(context.Background(), "Swali la 1 kati ya 2.", language.Swahili, func(chunk []byte) {
		if len(chunk)%2 != 0 {
			t.Errorf("expected whole samples, got %d bytes", len(chunk))
		}
		audio = append(audio, chunk...)
	})
	if err != nil {
		t.Fatalf("expected generation to succeed, got %v", err)
	}
	if len(audio) != 4 {
		t.Fatalf("expected 4 bytes of audio, got %d", len(audio))
	}
	if received.LanguageCode != "sw" || received.ModelID != defaultModel || received.Text != "Swali la 1 kati ya 2." {
		t.Fatalf("unexpected request body %+v", received)
	}
}

func TestGenerateMapsErrors(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"detail":{"status":"too_many_requests","message":"slow down"}}`, retryable: true},
		{name: "bad key", status: http.StatusUnauthorized, body: `{"detail":{"status":"invalid_api_key","message":"nope"}}`},
		{name: "server error without body", status: http.StatusBadGateway, retryable: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(testCase.status)
				_, _ = w.Write([]byte(testCase.body))
			}))
			defer server.Close()

			client, err := NewClient(WithAPIKey("test-key"), WithBaseURL(server.URL))
			if err != nil {
				t.Fatalf("expected client, got %v", err)
			}

			err = client.Generate(context.Background(), "hello", language.English, nil)
			var synthesisErr *texttospeech.SynthesisError
			if !errors.As(err, &synthesisErr) {
				t.Fatalf("expected synthesis error, got %v", err)
			}
			if synthesisErr.Retryable != testCase.retryable {
				t.Fatalf("expected retryable=%t, got %t (%v)", testCase.retryable, synthesisErr.Retryable, err)
			}
		})
	}
}

func TestGenerateWithoutAPIKey(t *testing.T) {
	client, err := NewClient(WithAPIKey(""))
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}
	if err := client.Generate(context.Background(), "hello", language.English, nil); !errors.Is(err, texttospeech.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
