package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainCalendar is the domain prefix for calendar fingerprints.
// The version suffix enables future algorithm migration.
const DomainCalendar = "worldcal/calendar/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes a content-addressed marker for a calendar snapshot.
// Two snapshots with the same content share a fingerprint regardless of
// Version or relation order in the input slice.
func Fingerprint(cal Calendar) (string, error) {
	canonical, err := MarshalCanonical(cal)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: %w", err)
	}
	return hashWithDomain(DomainCalendar, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(cal Calendar) string {
	fp, err := Fingerprint(cal)
	if err != nil {
		panic(err)
	}
	return fp
}
