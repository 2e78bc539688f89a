package domain

import (
	"fmt"
	"time"
)

// DedupRecord marks one unique article fingerprint as seen (immutable value
// object). Records are append-only: a fingerprint is written exactly once and
// never updated.
type DedupRecord struct {
	fingerprint string
	vector      []float32
	firstSeen   time.Time
}

// NewDedupRecord validates and creates a DedupRecord.
func NewDedupRecord(fingerprint string, vector []float32, firstSeen time.Time) (DedupRecord, error) {
	if fingerprint == "" {
		return DedupRecord{}, fmt.Errorf("dedup fingerprint is required")
	}
	if len(vector) == 0 {
		return DedupRecord{}, fmt.Errorf("dedup vector is required")
	}
	if firstSeen.IsZero() {
		firstSeen = time.Now().UTC()
	}
	return DedupRecord{fingerprint: fingerprint, vector: vector, firstSeen: firstSeen.UTC()}, nil
}

// ReconstructDedupRecord creates a DedupRecord without validation (storage hydration).
func ReconstructDedupRecord(fingerprint string, vector []float32, firstSeen time.Time) DedupRecord {
	return DedupRecord{fingerprint: fingerprint, vector: vector, firstSeen: firstSeen}
}

// Fingerprint returns the article fingerprint.
func (r *DedupRecord) Fingerprint() string { return r.fingerprint }

// Vector returns the article embedding captured at first sight.
func (r *DedupRecord) Vector() []float32 { return r.vector }

// FirstSeen returns when the fingerprint was first recorded.
func (r *DedupRecord) FirstSeen() time.Time { return r.firstSeen }
