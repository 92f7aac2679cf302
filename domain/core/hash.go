package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash is a hex SHA-256 digest of a study set.
type Hash string

// FingerprintStudies digests the (label, cases, population) triples in
// order. The same studies read from csv, xlsx or json fingerprint alike.
func FingerprintStudies(labels []string, cases, populations []int) Hash {
	h := sha256.New()
	for i := range labels {
		fmt.Fprintf(h, "%s\x1f%d\x1f%d\x1e", labels[i], cases[i], populations[i])
	}
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

func (h Hash) String() string { return string(h) }

// Short is the 12-character prefix shown in summaries.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}
