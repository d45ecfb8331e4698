// Package config loads the ema-guide binary configuration. Values come from
// the defaults, then an optional YAML file, then EMA_GUIDE_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/koscakluka/ema-guide/core/language"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "EMA_GUIDE"

type Config struct {
	// Language forces the start language. Empty uses the stored preference.
	Language string `yaml:"language" env:"LANGUAGE"`
	Scenario string `yaml:"scenario" env:"SCENARIO"`

	Audio       AudioConfig       `yaml:"audio" env:"AUDIO"`
	Recognition RecognitionConfig `yaml:"recognition" env:"RECOGNITION"`
	Synthesis   SynthesisConfig   `yaml:"synthesis" env:"SYNTHESIS"`
	Preferences PreferencesConfig `yaml:"preferences" env:"PREFERENCES"`
	Voice       VoiceConfig       `yaml:"voice" env:"VOICE"`
	Metrics     MetricsConfig     `yaml:"metrics" env:"METRICS"`
}

type AudioConfig struct {
	// Backend is "miniaudio" or "portaudio".
	Backend    string `yaml:"backend" env:"BACKEND"`
	SampleRate int    `yaml:"sample_rate" env:"SAMPLE_RATE"`
	// BufferSize is the portaudio frames per buffer.
	BufferSize int `yaml:"buffer_size" env:"BUFFER_SIZE"`
}

type RecognitionConfig struct {
	APIKey   string `yaml:"api_key" env:"API_KEY"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	Model    string `yaml:"model" env:"MODEL"`
}

type SynthesisConfig struct {
	DeepgramAPIKey   string `yaml:"deepgram_api_key" env:"DEEPGRAM_API_KEY"`
	DeepgramVoice    string `yaml:"deepgram_voice" env:"DEEPGRAM_VOICE"`
	ElevenLabsAPIKey string `yaml:"elevenlabs_api_key" env:"ELEVENLABS_API_KEY"`
	ElevenLabsVoice  string `yaml:"elevenlabs_voice" env:"ELEVENLABS_VOICE"`
	ElevenLabsModel  string `yaml:"elevenlabs_model" env:"ELEVENLABS_MODEL"`
	// Swahili selects the provider for Swahili speech, "elevenlabs" or
	// "deepgram". English always uses deepgram.
	Swahili        string        `yaml:"swahili" env:"SWAHILI"`
	InterItemDelay time.Duration `yaml:"inter_item_delay" env:"INTER_ITEM_DELAY"`
}

type PreferencesConfig struct {
	// Backend is "memory", "sqlite" or "redis".
	Backend     string `yaml:"backend" env:"BACKEND"`
	SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB     int    `yaml:"redis_db" env:"REDIS_DB"`
	RedisPrefix string `yaml:"redis_prefix" env:"REDIS_PREFIX"`
}

type VoiceConfig struct {
	VoiceThreshold   float64       `yaml:"voice_threshold" env:"VOICE_THRESHOLD"`
	SilenceThreshold float64       `yaml:"silence_threshold" env:"SILENCE_THRESHOLD"`
	SilenceGrace     time.Duration `yaml:"silence_grace" env:"SILENCE_GRACE"`
}

type MetricsConfig struct {
	// Addr is where /metrics is served. Empty disables the endpoint.
	Addr string `yaml:"addr" env:"ADDR"`
}

func Default() *Config {
	return &Config{
		Scenario: "eye-scan",
		Audio: AudioConfig{
			Backend:    "miniaudio",
			SampleRate: 16000,
			BufferSize: 1024,
		},
		Synthesis: SynthesisConfig{
			DeepgramVoice:  "aura-asteria-en",
			Swahili:        "elevenlabs",
			InterItemDelay: 100 * time.Millisecond,
		},
		Preferences: PreferencesConfig{
			Backend:     "sqlite",
			SQLitePath:  "ema-guide.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "ema-guide:",
		},
		Voice: VoiceConfig{
			VoiceThreshold:   0.02,
			SilenceThreshold: 0.005,
			SilenceGrace:     2 * time.Second,
		},
		Metrics: MetricsConfig{Addr: ":9464"},
	}
}

// Load reads path, which may be empty or missing, and applies environment
// overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(reflect.ValueOf(cfg).Elem(), EnvPrefix, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(v reflect.Value, prefix string, lookup func(string) (string, bool)) error {
	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}

		key := prefix + "_" + tag
		if field.Kind() == reflect.Struct {
			if err := applyEnv(field, key, lookup); err != nil {
				return err
			}
			continue
		}

		value, ok := lookup(key)
		if !ok || value == "" {
			continue
		}
		if err := setField(field, value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Language) != "" {
		if _, err := language.Parse(c.Language); err != nil {
			errs = append(errs, fmt.Errorf("language: %w", err))
		}
	}

	switch c.Audio.Backend {
	case "miniaudio", "portaudio":
	default:
		errs = append(errs, fmt.Errorf("audio.backend: unknown backend %q", c.Audio.Backend))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, errors.New("audio.sample_rate: must be positive"))
	}
	if c.Audio.Backend == "portaudio" && c.Audio.BufferSize <= 0 {
		errs = append(errs, errors.New("audio.buffer_size: must be positive"))
	}

	switch c.Synthesis.Swahili {
	case "elevenlabs", "deepgram":
	default:
		errs = append(errs, fmt.Errorf("synthesis.swahili: unknown provider %q", c.Synthesis.Swahili))
	}
	if c.Synthesis.InterItemDelay < 0 {
		errs = append(errs, errors.New("synthesis.inter_item_delay: must not be negative"))
	}

	switch c.Preferences.Backend {
	case "memory":
	case "sqlite":
		if c.Preferences.SQLitePath == "" {
			errs = append(errs, errors.New("preferences.sqlite_path: required for the sqlite backend"))
		}
	case "redis":
		if c.Preferences.RedisAddr == "" {
			errs = append(errs, errors.New("preferences.redis_addr: required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("preferences.backend: unknown backend %q", c.Preferences.Backend))
	}

	if c.Voice.SilenceThreshold <= 0 || c.Voice.VoiceThreshold <= c.Voice.SilenceThreshold {
		errs = append(errs, errors.New("voice: voice_threshold must exceed a positive silence_threshold"))
	}
	if c.Voice.SilenceGrace <= 0 {
		errs = append(errs, errors.New("voice.silence_grace: must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// StartLanguage is the configured start language, or "" to restore the
// stored preference.
func (c *Config) StartLanguage() language.Language {
	lang, err := language.Parse(c.Language)
	if err != nil {
		return ""
	}
	return lang
}
