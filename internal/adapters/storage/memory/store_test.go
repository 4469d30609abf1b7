package memory

import (
	"context"
	"testing"
)

func TestStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewStore(map[string]string{"authToken": "seed"})
	if v, ok, _ := s.Get(ctx, "authToken"); !ok || v != "seed" {
		t.Fatalf("seed not visible: ok=%v v=%q", ok, v)
	}
	if _, ok, _ := s.Get(ctx, "serverUrl"); ok {
		t.Fatalf("unexpected key present")
	}
	_ = s.Set(ctx, "serverUrl", "http://x")
	if keys := s.Keys(); len(keys) != 2 || keys[0] != "authToken" || keys[1] != "serverUrl" {
		t.Fatalf("keys=%v", keys)
	}
}
