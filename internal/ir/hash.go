package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	// v1 hashed the NFC-normalized canonical JSON of the key.
	DomainDefKey = "withdef/defkey/v2"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// KeyID computes the stable content-addressed ID of a DefKey.
// Used as the primary key of persisted definitions.
//
// The key's bytes are hashed as given, each part length-prefixed, so keys
// that differ only in Unicode normalization get distinct IDs.
func KeyID(k DefKey) string {
	var data []byte
	for _, part := range []string{k.Repo, k.Rev, k.Def} {
		data = strconv.AppendInt(data, int64(len(part)), 10)
		data = append(data, ':')
		data = append(data, part...)
	}
	return hashWithDomain(DomainDefKey, data)
}
