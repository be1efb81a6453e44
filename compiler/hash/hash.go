// Package hash computes content hashes of nuqta programs.
package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/nuqta/compiler"
)

// HashProgram computes the SHA-256 content hash of prog.
//
// The hash covers structure, names, types and literal values. Source
// positions, whitespace and comments do not contribute, so two sources
// that parse to the same tree share a hash and therefore lower to the same
// TAC and backend text.
func HashProgram(prog *compiler.Program) [32]byte {
	return sha256.Sum256(Serialize(prog))
}

// Hex returns the lowercase hex form of a hash.
func Hex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
