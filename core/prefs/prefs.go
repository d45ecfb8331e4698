// Package prefs persists the few user choices that outlive an activation:
// the conversation language and whether the guide was told to be quiet.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/koscakluka/ema-guide/core/language"
)

const (
	KeyLanguage = "guide.language"
	KeyQuiet    = "guide.quiet"
)

var ErrNotFound = errors.New("preference not found")

type Preferences struct {
	Language language.Language
	Quiet    bool
}

func Defaults() Preferences {
	return Preferences{Language: language.Default}
}

// KV is the minimal key/value storage the store needs. Get returns
// ErrNotFound for missing keys.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type Store struct {
	kv KV
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Load returns the stored preferences. Missing keys keep their defaults.
func (s *Store) Load(ctx context.Context) (Preferences, error) {
	preferences := Defaults()

	value, err := s.kv.Get(ctx, KeyLanguage)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return preferences, fmt.Errorf("failed to load %s: %w", KeyLanguage, err)
	default:
		lang, err := language.Parse(value)
		if err != nil {
			return preferences, fmt.Errorf("stored %s is invalid: %w", KeyLanguage, err)
		}
		preferences.Language = lang
	}

	value, err = s.kv.Get(ctx, KeyQuiet)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return preferences, fmt.Errorf("failed to load %s: %w", KeyQuiet, err)
	default:
		quiet, err := strconv.ParseBool(value)
		if err != nil {
			return preferences, fmt.Errorf("stored %s is invalid: %w", KeyQuiet, err)
		}
		preferences.Quiet = quiet
	}

	return preferences, nil
}

func (s *Store) Save(ctx context.Context, preferences Preferences) error {
	return errors.Join(
		s.SaveLanguage(ctx, preferences.Language),
		s.SaveQuiet(ctx, preferences.Quiet),
	)
}

func (s *Store) SaveLanguage(ctx context.Context, lang language.Language) error {
	if err := s.kv.Set(ctx, KeyLanguage, lang.OrDefault().String()); err != nil {
		return fmt.Errorf("failed to save %s: %w", KeyLanguage, err)
	}
	return nil
}

func (s *Store) SaveQuiet(ctx context.Context, quiet bool) error {
	if err := s.kv.Set(ctx, KeyQuiet, strconv.FormatBool(quiet)); err != nil {
		return fmt.Errorf("failed to save %s: %w", KeyQuiet, err)
	}
	return nil
}

// Memory is a process local KV.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
