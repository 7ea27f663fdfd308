package stager

import (
	"fmt"

	"github.com/opencontainers/go-digest"
)

// identifierFor derives the resource identifier for one (slot, generation)
// pair: a SHA-256 over the NUL-joined triple. Recomputing with the same
// inputs must yield the same identifier (Stage depends on that to find the
// blob it is superseding), the hex encoding needs no URL escaping, and the
// per-instance nonce keeps identifiers from colliding across sessions or
// restarts.
func identifierFor(slotKey string, generation uint64, nonce string) string {
	return digest.FromString(fmt.Sprintf("%s\x00%d\x00%s", slotKey, generation, nonce)).Encoded()
}

// SlotKey derives a stable slot key from a component identity and the
// textual form of the expression that produces its value. Folding the
// expression in keeps two different value producers at the same component
// from aliasing to one slot, while the same producer maps back to the same
// slot on every refresh cycle.
func SlotKey(componentID, expression string) string {
	return digest.FromString(componentID + "\x00" + expression).Encoded()
}
