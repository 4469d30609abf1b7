package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"interview-monitor/internal/domain"
)

// Settings store keys.
const (
	KeyServerURL            = "serverUrl"
	KeyFrameIntervalMs      = "frameIntervalMs"
	KeyMaxReconnectAttempts = "maxReconnectAttempts"
	KeyAuthToken            = "authToken"
)

const (
	DefaultServerURL            = "http://localhost:5002"
	DefaultFrameIntervalMs      = 1000
	DefaultMaxReconnectAttempts = 5

	minFrameIntervalMs = 500
	maxFrameIntervalMs = 5000
	minReconnects      = 1
	maxReconnects      = 10
)

// Keys lists every settings key in display order.
var Keys = []string{KeyServerURL, KeyFrameIntervalMs, KeyMaxReconnectAttempts, KeyAuthToken}

// Store is the get/set capability of the persistent settings store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Provider reads session settings from a Store, applying defaults and bounds.
type Provider struct {
	Store Store
}

func NewProvider(s Store) *Provider { return &Provider{Store: s} }

// Settings loads a fresh snapshot. Unparseable numbers fall back to defaults;
// only store failures are returned as errors.
func (p *Provider) Settings(ctx context.Context) (domain.Settings, error) {
	get := func(key string) (string, error) {
		v, ok, err := p.Store.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("read setting %s: %w", key, err)
		}
		if !ok {
			return "", nil
		}
		return strings.TrimSpace(v), nil
	}
	var out domain.Settings
	url, err := get(KeyServerURL)
	if err != nil {
		return out, err
	}
	if url == "" {
		url = DefaultServerURL
	}
	interval, err := get(KeyFrameIntervalMs)
	if err != nil {
		return out, err
	}
	attempts, err := get(KeyMaxReconnectAttempts)
	if err != nil {
		return out, err
	}
	token, err := get(KeyAuthToken)
	if err != nil {
		return out, err
	}
	out.ServerURL = url
	out.FrameInterval = time.Duration(clamp(atoiOr(interval, DefaultFrameIntervalMs), minFrameIntervalMs, maxFrameIntervalMs)) * time.Millisecond
	out.MaxReconnectAttempts = clamp(atoiOr(attempts, DefaultMaxReconnectAttempts), minReconnects, maxReconnects)
	out.AuthToken = token
	return out, nil
}

// Validate checks a single key/value pair before it is written to the store.
func Validate(key, value string) error {
	switch key {
	case KeyServerURL:
		v := strings.TrimSpace(value)
		if v != "" && !hasScheme(v, "http://", "https://", "ws://", "wss://") {
			return fmt.Errorf("%s must be an http(s) or ws(s) URL", key)
		}
	case KeyFrameIntervalMs, KeyMaxReconnectAttempts:
		if strings.TrimSpace(value) == "" {
			return nil
		}
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
	case KeyAuthToken:
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func hasScheme(v string, schemes ...string) bool {
	lv := strings.ToLower(v)
	for _, s := range schemes {
		if strings.HasPrefix(lv, s) {
			return true
		}
	}
	return false
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
