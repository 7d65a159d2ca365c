package loader

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCacheLoadsOnce(t *testing.T) {
	var c Cache
	var loads atomic.Int32
	load := func() ([]byte, error) {
		loads.Add(1)
		return []byte("content"), nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.Get("k", load)
			if err != nil || string(b) != "content" {
				t.Errorf("Get = %q, %v", b, err)
			}
		}()
	}
	wg.Wait()

	if _, err := c.Get("k", load); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n := loads.Load(); n != 1 {
		t.Fatalf("expected 1 load, got %d", n)
	}

	c.Forget("k")
	if _, err := c.Get("k", load); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n := loads.Load(); n != 2 {
		t.Fatalf("expected reload after Forget, got %d loads", n)
	}
}

func TestCacheDoesNotKeepErrors(t *testing.T) {
	var c Cache
	if _, err := c.Get("k", func() ([]byte, error) { return nil, errors.New("missing") }); err == nil {
		t.Fatalf("expected error")
	}
	b, err := c.Get("k", func() ([]byte, error) { return []byte("ok"), nil })
	if err != nil || string(b) != "ok" {
		t.Fatalf("Get = %q, %v", b, err)
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("plain"), "plain"},
		{[]byte("\xef\xbb\xbfwith bom"), "with bom"},
		{[]byte("bad\xffbyte"), "bad\uFFFDbyte"},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Fatalf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
