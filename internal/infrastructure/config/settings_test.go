package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"interview-monitor/internal/adapters/storage/memory"
)

func TestSettingsDefaults(t *testing.T) {
	p := NewProvider(memory.NewStore(nil))
	s, err := p.Settings(context.Background())
	require.NoError(t, err)
	require.Equal(t, DefaultServerURL, s.ServerURL)
	require.Equal(t, time.Second, s.FrameInterval)
	require.Equal(t, DefaultMaxReconnectAttempts, s.MaxReconnectAttempts)
	require.Empty(t, s.AuthToken)
}

func TestSettingsClampedToBounds(t *testing.T) {
	p := NewProvider(memory.NewStore(map[string]string{
		KeyServerURL:            " https://proctor.example ",
		KeyFrameIntervalMs:      "50",
		KeyMaxReconnectAttempts: "99",
		KeyAuthToken:            "secret",
	}))
	s, err := p.Settings(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://proctor.example", s.ServerURL)
	require.Equal(t, 500*time.Millisecond, s.FrameInterval)
	require.Equal(t, 10, s.MaxReconnectAttempts)
	require.Equal(t, "secret", s.AuthToken)

	p = NewProvider(memory.NewStore(map[string]string{KeyFrameIntervalMs: "60000", KeyMaxReconnectAttempts: "0"}))
	s, err = p.Settings(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, s.FrameInterval)
	require.Equal(t, 1, s.MaxReconnectAttempts)
}

func TestSettingsGarbageFallsBackToDefault(t *testing.T) {
	p := NewProvider(memory.NewStore(map[string]string{KeyFrameIntervalMs: "fast"}))
	s, err := p.Settings(context.Background())
	require.NoError(t, err)
	require.Equal(t, time.Second, s.FrameInterval)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}
func (brokenStore) Set(context.Context, string, string) error { return nil }

func TestSettingsStoreFailure(t *testing.T) {
	_, err := NewProvider(brokenStore{}).Settings(context.Background())
	require.ErrorContains(t, err, "disk on fire")
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(KeyServerURL, "http://localhost:5002"))
	require.Error(t, Validate(KeyServerURL, "localhost:5002"))
	require.NoError(t, Validate(KeyFrameIntervalMs, "1000"))
	require.Error(t, Validate(KeyFrameIntervalMs, "-1"))
	require.NoError(t, Validate(KeyAuthToken, ""))
	require.Error(t, Validate("theme", "dark"))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SOURCES", "cam=/tmp/a, /tmp/b ,")
	t.Setenv("ENGINE_IO", "7")
	t.Setenv("RECONNECT_DELAY_MS", "250")
	cfg := FromEnv()
	require.Equal(t, []string{"cam=/tmp/a", "/tmp/b"}, cfg.Sources)
	require.Equal(t, 4, cfg.EngineIO)
	require.Equal(t, 250*time.Millisecond, cfg.ReconnectDelay)
	require.Equal(t, ":9092", cfg.Addr)
}
