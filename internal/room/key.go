// Package room derives canonical conversation room keys. A room is the
// transport-level grouping for exactly two participants; both sides must
// compute the same key regardless of which identity is "sender".
package room

// Key returns the canonical room key for an unordered pair of user IDs.
// The two IDs are sorted lexicographically and joined, so Key(a, b) and
// Key(b, a) always agree. The key doubles as the NATS room subject token,
// which is why the separator is ":" (safe inside a subject token).
func Key(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}
