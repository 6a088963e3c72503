package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(ttl, clock.Now), clock
}

func TestFingerprint(t *testing.T) {
	h1 := Fingerprint("gemini-2.5-flash", "hola")
	h2 := Fingerprint("gemini-2.5-flash", "hola")
	h3 := Fingerprint("gemini-2.5-pro", "hola")
	h4 := Fingerprint("gemini-2.5-flash", "hola!")

	assert.Equal(t, h1, h2, "same input should produce same fingerprint")
	assert.NotEqual(t, h1, h3, "different model should change fingerprint")
	assert.NotEqual(t, h1, h4, "different prompt should change fingerprint")
	assert.Len(t, h1, 64)
}

func TestFingerprintSeparator(t *testing.T) {
	// The separator keeps model/prompt boundaries from sliding.
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
}

func TestFingerprintNoCollisions(t *testing.T) {
	modelIDs := []string{"gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.0-flash"}
	prompts := []string{"", "corrige", "explica ecuaciones", "genera ejercicio basico", "genera ejercicio avanzado"}

	seen := make(map[string]string)
	for _, m := range modelIDs {
		for _, p := range prompts {
			fp := Fingerprint(m, p)
			if prev, dup := seen[fp]; dup {
				t.Fatalf("collision between %q and %q", prev, m+"::"+p)
			}
			seen[fp] = m + "::" + p
		}
	}
}

func TestPutAndGet(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	fp := Fingerprint("gemini-2.5-flash", "hi")

	c.Put(fp, "gemini-2.5-flash", "hola")

	text, ok := c.Get(fp)
	require.True(t, ok, "expected cache hit")
	assert.Equal(t, "hola", text)

	_, ok = c.Get(Fingerprint("gemini-2.5-pro", "hi"))
	assert.False(t, ok, "expected cache miss for different model")
}

func TestTTLExpiration(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	c.Put("fp", "m", "data")

	clock.Advance(59 * time.Second)
	_, ok := c.Get("fp")
	assert.True(t, ok, "entry should be fresh before TTL")

	clock.Advance(time.Second)
	_, ok = c.Get("fp")
	assert.False(t, ok, "entry should be stale once now-timestamp reaches TTL")

	// Stale entries are skipped, not removed.
	entry, ok := c.Entry("fp")
	require.True(t, ok)
	assert.Equal(t, "data", entry.Text)
}

func TestPutOverwritesTimestamp(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	c.Put("fp", "m", "old")
	clock.Advance(2 * time.Minute)
	c.Put("fp", "m", "new")

	text, ok := c.Get("fp")
	require.True(t, ok)
	assert.Equal(t, "new", text)
}

func TestStats(t *testing.T) {
	c, clock := newTestCache(t, time.Hour)

	c.Put("h1", "m", "data")
	clock.Advance(2 * time.Hour)
	c.Put("h2", "m", "data")
	c.Get("h2") // hit
	c.Get("h1") // miss (stale)
	c.Get("h3") // miss

	stats := c.Stats()
	assert.EqualValues(t, 2, stats.Entries)
	assert.EqualValues(t, 1, stats.Fresh)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 2, stats.Misses)
}
