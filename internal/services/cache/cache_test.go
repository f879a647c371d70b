package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/codequeen-tgbot-go/internal/config"
	"github.com/sirupsen/logrus"
)

func newTestCache(maxSize int, ttl time.Duration) Service {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewCache(&config.CacheConfig{
		Enabled: true,
		TTL:     ttl,
		MaxSize: maxSize,
	}, logger)
}

func TestGetSet(t *testing.T) {
	c := newTestCache(10, time.Minute)

	if _, found := c.Get("промпт"); found {
		t.Error("Empty cache reported a hit")
	}

	c.Set("промпт", "ответ")
	got, found := c.Get("промпт")
	if !found || got != "ответ" {
		t.Errorf("Get = (%q, %v), want (%q, true)", got, found, "ответ")
	}

	if _, found := c.Get("другой промпт"); found {
		t.Error("Hit for a different prompt")
	}
}

func TestCapacityBound(t *testing.T) {
	c := newTestCache(3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("промпт %d", i), fmt.Sprintf("ответ %d", i))
		// go-cache expirations have nanosecond resolution; keep insertion
		// order distinguishable.
		time.Sleep(time.Millisecond)
	}

	c.Set("промпт 3", "ответ 3")

	// Oldest-inserted entry is gone, the rest survive.
	if _, found := c.Get("промпт 0"); found {
		t.Error("Oldest entry should have been evicted")
	}
	for i := 1; i <= 3; i++ {
		if _, found := c.Get(fmt.Sprintf("промпт %d", i)); !found {
			t.Errorf("Entry %d missing after eviction", i)
		}
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(10, time.Minute)

	c.Set("a", "1")
	c.Clear()
	if _, found := c.Get("a"); found {
		t.Error("Entry survived Clear")
	}
}

func TestDisabled(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c := NewCache(&config.CacheConfig{Enabled: false}, logger)

	c.Set("a", "1")
	if _, found := c.Get("a"); found {
		t.Error("Disabled cache returned a hit")
	}
	c.Clear()
}

func TestFingerprintDeterministic(t *testing.T) {
	if Fingerprint("промпт") != Fingerprint("промпт") {
		t.Error("Fingerprint not deterministic")
	}
	if Fingerprint("a") == Fingerprint("b") {
		t.Error("Distinct prompts collided")
	}
}
