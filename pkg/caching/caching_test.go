package caching

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}

	if _, ok := c.Get("https://example.com/course/1"); ok {
		t.Fatal("Get() hit on empty cache")
	}
	if err := c.Set("https://example.com/course/1", []byte("<html>1</html>")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	data, ok := c.Get("https://example.com/course/1")
	if !ok || string(data) != "<html>1</html>" {
		t.Errorf("Get() = %q, %v", data, ok)
	}
	if _, ok := c.Get("https://example.com/course/2"); ok {
		t.Error("Get() hit for a different url")
	}
}

func TestCache_Expiry(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}
	if err := c.Set("u", []byte("x")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, ok := c.Get("u"); ok {
		t.Error("Get() returned an expired entry")
	}
}
