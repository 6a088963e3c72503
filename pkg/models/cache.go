package models

import "time"

// CacheEntry stores a generated text keyed by its request fingerprint.
type CacheEntry struct {
	Fingerprint string    `json:"fingerprint"`
	Model       string    `json:"model"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Fresh   int64 `json:"fresh"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}
