// Package diffcache caches diff outcomes by content fingerprint.
//
// The cache is engine-scoped: callers own an instance and share it
// explicitly, there is no package-level state. Entries are frozen on
// insertion; a hit hands back the same *diff.Outcome that was stored, so
// callers must treat it (including any DiffImage) as read-only.
package diffcache

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/frankbria/iris/go/diff"
)

// DefaultMaxSize bounds the cache when no size is configured.
const DefaultMaxSize = 512

// Fingerprint identifies a (baseline, current, options) tuple.
//
// It is the hex MD5 of the two image digests and the canonical options
// serialization. The image digests are sorted first: the computed metrics
// are symmetric in the two inputs, so both orderings share one entry, the
// same way a diff of digests A:B and B:A is the same diff. MD5 is not
// collision-resistant against adversaries, but the inputs are trusted test
// artifacts and the store revalidates digests on every hit, so a fast
// non-cryptographic-strength hash is an acceptable trade.
type Fingerprint string

// NewFingerprint builds the cache key for a comparison.
func NewFingerprint(baselineDigest, currentDigest string, opts diff.Options) Fingerprint {
	left, right := baselineDigest, currentDigest
	if right < left {
		left, right = right, left
	}
	h := md5.New()
	_, _ = h.Write([]byte(left))
	_, _ = h.Write([]byte(":"))
	_, _ = h.Write([]byte(right))
	_, _ = h.Write([]byte(":"))
	_, _ = h.Write(opts.CanonicalJSON())
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// entry is frozen after insertion; only the surrounding cache bookkeeping
// (LRU order) changes afterward.
type entry struct {
	leftDigest  string
	rightDigest string
	outcome     *diff.Outcome
	createdAt   time.Time
}

// Cache is a size-bounded LRU of diff outcomes, safe for concurrent use.
// A nil or disabled Cache bypasses all caching.
type Cache struct {
	entries *lru.Cache[Fingerprint, *entry]
	group   singleflight.Group
}

// New returns a cache bounded to maxSize entries. maxSize <= 0 returns a
// disabled cache, used to measure true computation cost and to keep
// correctness tests free of cross-test contamination.
func New(maxSize int) *Cache {
	if maxSize <= 0 {
		return &Cache{}
	}
	entries, err := lru.New[Fingerprint, *entry](maxSize)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Cache{entries: entries}
}

// Disabled reports whether the cache bypasses get/put.
func (c *Cache) Disabled() bool {
	return c == nil || c.entries == nil
}

// Get returns the cached outcome for fp, revalidating that the stored entry
// was produced from the given image digests. A fingerprint collision is
// logged and treated as a miss, never served.
func (c *Cache) Get(fp Fingerprint, baselineDigest, currentDigest string) (*diff.Outcome, bool) {
	if c.Disabled() {
		return nil, false
	}
	e, ok := c.entries.Get(fp)
	if !ok {
		misses.Inc()
		return nil, false
	}
	if !e.matches(baselineDigest, currentDigest) {
		collisions.Inc()
		zap.S().Warnf("diffcache fingerprint collision on %s: stored %s:%s, requested %s:%s",
			fp, e.leftDigest, e.rightDigest, baselineDigest, currentDigest)
		misses.Inc()
		return nil, false
	}
	hits.Inc()
	return e.outcome, true
}

// Put stores an outcome. Later Puts for the same fingerprint are ignored;
// the first stored entry stays frozen.
func (c *Cache) Put(fp Fingerprint, baselineDigest, currentDigest string, out *diff.Outcome) {
	if c.Disabled() {
		return
	}
	if _, ok := c.entries.Get(fp); ok {
		return
	}
	left, right := baselineDigest, currentDigest
	if right < left {
		left, right = right, left
	}
	c.entries.Add(fp, &entry{
		leftDigest:  left,
		rightDigest: right,
		outcome:     out,
		createdAt:   time.Now(),
	})
}

// Do is the read-through path: it returns the cached outcome for fp or runs
// compute exactly once per key, even under concurrent callers for the same
// fingerprint. A partially-computed outcome is never observable; the entry
// is only published after compute returns.
func (c *Cache) Do(fp Fingerprint, baselineDigest, currentDigest string, compute func() (*diff.Outcome, error)) (*diff.Outcome, error) {
	if c.Disabled() {
		return compute()
	}
	v, err, _ := c.group.Do(string(fp), func() (interface{}, error) {
		if out, ok := c.Get(fp, baselineDigest, currentDigest); ok {
			return out, nil
		}
		out, err := compute()
		if err != nil {
			return nil, err
		}
		c.Put(fp, baselineDigest, currentDigest, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*diff.Outcome), nil
}

// Len returns the number of cached outcomes.
func (c *Cache) Len() int {
	if c.Disabled() {
		return 0
	}
	return c.entries.Len()
}

func (e *entry) matches(baselineDigest, currentDigest string) bool {
	left, right := baselineDigest, currentDigest
	if right < left {
		left, right = right, left
	}
	return e.leftDigest == left && e.rightDigest == right
}
