// Package traceid generates short, unambiguous request correlation IDs.
//
// Every inbound request is stamped with a trace ID echoed as the
// X-Trace-Id response header and recorded in the diagnostic trace
// (internal/trace).
package traceid

import "crypto/rand"

// base58Alphabet is Bitcoin-style: no 0/O/I/l ambiguity, safe to read
// aloud or paste into a terminal without confusing similar glyphs.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// New returns a fresh 8-byte random trace ID, Base58 encoded.
func New() string {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is broken,
		// which means nothing else on this machine is trustworthy either.
		panic("traceid: failed to read entropy: " + err.Error())
	}
	return Encode(raw[:])
}

// Encode base58-encodes data, treating it as an unsigned big-endian
// integer. Used directly by tests; New is the production entry point.
func Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	num := make([]byte, len(data))
	copy(num, data)

	var result []byte
	for hasNonZero(num) {
		var remainder int
		for i := 0; i < len(num); i++ {
			acc := remainder*256 + int(num[i])
			num[i] = byte(acc / 58)
			remainder = acc % 58
		}
		result = append([]byte{base58Alphabet[remainder]}, result...)
	}

	// Preserve leading zero bytes as leading '1's, matching Bitcoin-style
	// Base58 so an all-zero ID never encodes to the empty string.
	for _, b := range data {
		if b != 0 {
			break
		}
		result = append([]byte{'1'}, result...)
	}

	if len(result) == 0 {
		return "1"
	}
	return string(result)
}

func hasNonZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return true
		}
	}
	return false
}
