package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func tempRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := OpenRedis(context.Background(), RedisOptions{Addr: mr.Addr(), Timeout: time.Second})
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, mr
}

func TestRedis_SetAndGet(t *testing.T) {
	r, mr := tempRedis(t)
	ctx := context.Background()

	if err := r.Set(ctx, "NOTES", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := r.Get(ctx, "NOTES")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Errorf("value = %q", got)
	}
	if raw, _ := mr.Get("NOTES"); raw != `[{"id":"1"}]` {
		t.Errorf("server value = %q", raw)
	}
}

func TestRedis_GetMissing(t *testing.T) {
	r, _ := tempRedis(t)
	if _, err := r.Get(context.Background(), "NOTES"); !errors.Is(err, ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestRedis_ServerDown(t *testing.T) {
	r, mr := tempRedis(t)
	mr.Close()
	_, err := r.Get(context.Background(), "NOTES")
	if err == nil || errors.Is(err, ErrNotExist) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestOpenRedis_Unreachable(t *testing.T) {
	_, err := OpenRedis(context.Background(), RedisOptions{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if err == nil {
		t.Error("expected ping error")
	}
}
