package query

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// DomainQuery is the hash domain for query fingerprints.
// The version suffix allows the encoding to change without key reuse.
const DomainQuery = "reportcore/query/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a content hash of q suitable as a cache key.
//
// The JSON encoding is deterministic (struct field order, sorted map keys)
// and strings are NFC normalised, so visually identical queries typed on
// different platforms share a fingerprint.
func Fingerprint(q DataQuery) (string, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainQuery, norm.NFC.Bytes(data)), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the query holds plain literal values.
func MustFingerprint(q DataQuery) string {
	fp, err := Fingerprint(q)
	if err != nil {
		panic(err)
	}
	return fp
}
