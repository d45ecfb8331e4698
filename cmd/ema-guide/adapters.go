package main

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-guide/core/audio"
	"github.com/koscakluka/ema-guide/core/audio/miniaudio"
	"github.com/koscakluka/ema-guide/core/audio/portaudio"
	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/prefs"
	prefsredis "github.com/koscakluka/ema-guide/core/prefs/redis"
	prefssqlite "github.com/koscakluka/ema-guide/core/prefs/sqlite"
	"github.com/koscakluka/ema-guide/core/speechtotext"
	stt "github.com/koscakluka/ema-guide/core/speechtotext/deepgram"
	"github.com/koscakluka/ema-guide/core/texttospeech"
	tts "github.com/koscakluka/ema-guide/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-guide/core/texttospeech/elevenlabs"
	"github.com/koscakluka/ema-guide/core/vad"
	"github.com/koscakluka/ema-guide/internal/config"
	"github.com/redis/go-redis/v9"
)

// audioDevice is a microphone and speaker pair.
type audioDevice interface {
	vad.Source
	texttospeech.AudioOutput
	EncodingInfo() audio.EncodingInfo
	Close()
}

func openAudio(cfg config.AudioConfig) (audioDevice, error) {
	if cfg.Backend == "portaudio" {
		client, err := portaudio.NewClient(cfg.BufferSize)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := miniaudio.NewClient(miniaudio.WithSampleRate(cfg.SampleRate))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// openPreferences returns the preference store and a function releasing its
// backend.
func openPreferences(ctx context.Context, cfg config.PreferencesConfig) (*prefs.Store, func(), error) {
	switch cfg.Backend {
	case "sqlite":
		kv, err := prefssqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return prefs.NewStore(kv), func() { _ = kv.Close() }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		kv := prefsredis.New(client, prefsredis.WithPrefix(cfg.RedisPrefix))
		return prefs.NewStore(kv), func() { _ = client.Close() }, nil
	default:
		return prefs.NewStore(prefs.NewMemory()), func() {}, nil
	}
}

func newRecognizer(cfg config.RecognitionConfig, info audio.EncodingInfo) speechtotext.Recognizer {
	opts := []stt.ClientOption{
		stt.WithTranscriptionOptions(speechtotext.WithEncodingInfo(info)),
	}
	if cfg.APIKey != "" {
		opts = append(opts, stt.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, stt.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Model != "" {
		opts = append(opts, stt.WithModel(cfg.Model))
	}
	return stt.NewTranscriptionClient(opts...)
}

// newSynthesizer routes English to Deepgram and Swahili to the configured
// provider, and plays the result on output.
func newSynthesizer(cfg config.SynthesisConfig, output audioDevice) (*texttospeech.Player, error) {
	info := output.EncodingInfo()

	deepgramOpts := []tts.ClientOption{
		tts.WithTextToSpeechOptions(texttospeech.WithEncodingInfo(info), texttospeech.WithVoice(cfg.DeepgramVoice)),
	}
	if cfg.DeepgramAPIKey != "" {
		deepgramOpts = append(deepgramOpts, tts.WithAPIKey(cfg.DeepgramAPIKey))
	}
	english, err := tts.NewTextToSpeechClient(deepgramOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create deepgram synthesizer: %w", err)
	}

	var routes []texttospeech.RouterOption
	if cfg.Swahili == "elevenlabs" {
		elevenOpts := []elevenlabs.ClientOption{
			elevenlabs.WithTextToSpeechOptions(texttospeech.WithEncodingInfo(info), texttospeech.WithVoice(cfg.ElevenLabsVoice)),
		}
		if cfg.ElevenLabsAPIKey != "" {
			elevenOpts = append(elevenOpts, elevenlabs.WithAPIKey(cfg.ElevenLabsAPIKey))
		}
		if cfg.ElevenLabsModel != "" {
			elevenOpts = append(elevenOpts, elevenlabs.WithModel(cfg.ElevenLabsModel))
		}
		swahili, err := elevenlabs.NewClient(elevenOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create elevenlabs synthesizer: %w", err)
		}
		routes = append(routes, texttospeech.WithLanguageGenerator(language.Swahili, swahili))
	}

	return texttospeech.NewPlayer(texttospeech.NewRouter(english, routes...), output), nil
}

func voiceParams(cfg config.Config, info audio.EncodingInfo) vad.Params {
	params := vad.DefaultParams()
	params.SampleRate = info.SampleRate
	params.VoiceThreshold = cfg.Voice.VoiceThreshold
	params.SilenceThreshold = cfg.Voice.SilenceThreshold
	params.SilenceGrace = cfg.Voice.SilenceGrace
	return params
}
