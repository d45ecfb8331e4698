package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	orchestration "github.com/koscakluka/ema-guide/core"
	"github.com/koscakluka/ema-guide/core/audio"
	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/registry"
	"github.com/koscakluka/ema-guide/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestScriptsCommandListsScenarios(t *testing.T) {
	out := execute(t, "scripts")
	assert.Contains(t, out, "eye-scan")
	assert.Contains(t, out, "myopia")
	assert.Contains(t, out, "questions")
}

func TestSchemaCommandPrintsJSON(t *testing.T) {
	out := execute(t, "schema")
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.True(t, strings.Contains(out, "questions"))
}

func TestOpenPreferences(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, closeStore, err := openPreferences(ctx, config.PreferencesConfig{Backend: "memory"})
		require.NoError(t, err)
		defer closeStore()
		require.NoError(t, store.SaveLanguage(ctx, language.Swahili))
		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, language.Swahili, loaded.Language)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prefs.db")
		store, closeStore, err := openPreferences(ctx, config.PreferencesConfig{Backend: "sqlite", SQLitePath: path})
		require.NoError(t, err)
		require.NoError(t, store.SaveQuiet(ctx, true))
		closeStore()

		store, closeStore, err = openPreferences(ctx, config.PreferencesConfig{Backend: "sqlite", SQLitePath: path})
		require.NoError(t, err)
		defer closeStore()
		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.True(t, loaded.Quiet)
	})

	t.Run("redis", func(t *testing.T) {
		server := miniredis.RunT(t)
		store, closeStore, err := openPreferences(ctx, config.PreferencesConfig{Backend: "redis", RedisAddr: server.Addr(), RedisPrefix: "test:"})
		require.NoError(t, err)
		defer closeStore()
		require.NoError(t, store.SaveLanguage(ctx, language.Swahili))
		assert.NotEmpty(t, server.Keys())
		for _, key := range server.Keys() {
			assert.True(t, strings.HasPrefix(key, "test:"), "expected prefixed key, got %s", key)
		}
	})

	t.Run("redis unreachable", func(t *testing.T) {
		server := miniredis.RunT(t)
		addr := server.Addr()
		server.Close()
		_, _, err := openPreferences(ctx, config.PreferencesConfig{Backend: "redis", RedisAddr: addr})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to reach redis")
	})
}

func TestVoiceParamsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Voice.SilenceGrace = 3 * time.Second

	params := voiceParams(*cfg, audio.EncodingInfo{SampleRate: 24000, Format: audio.EncodingLinear16})
	require.NoError(t, params.Validate())
	assert.Equal(t, 24000, params.SampleRate)
	assert.Equal(t, 3*time.Second, params.SilenceGrace)
	assert.InDelta(t, cfg.Voice.VoiceThreshold, params.VoiceThreshold, 1e-9)
}

func TestRunRejectsUnknownLanguageFlag(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"run", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--language", "fr"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "language")
}

func TestActivateRestoresStoredLanguage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	store, closeStore, err := openPreferences(ctx, config.PreferencesConfig{Backend: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	require.NoError(t, store.SaveLanguage(ctx, language.Swahili))
	closeStore()

	tests := []struct {
		name       string
		configured string
		expected   language.Language
	}{
		{name: "stored preference", configured: "", expected: language.Swahili},
		{name: "configured language wins", configured: "en", expected: language.English},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeStore, err := openPreferences(ctx, config.PreferencesConfig{Backend: "sqlite", SQLitePath: path})
			require.NoError(t, err)
			defer closeStore()

			guide, err := orchestration.NewController(
				orchestration.WithPreferences(store),
				orchestration.WithRegistry(registry.New()),
				orchestration.WithInterItemDelay(0),
			)
			require.NoError(t, err)
			defer guide.Close()

			cfg := config.Default()
			cfg.Language = tt.configured
			require.NoError(t, cfg.Validate())
			require.NoError(t, activate(ctx, guide, cfg))
			assert.Equal(t, tt.expected, guide.Session().Language)
		})
	}
}
