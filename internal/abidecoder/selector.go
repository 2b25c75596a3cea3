package abidecoder

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// SelectorTable maps a 4-byte method selector (lower-case hex, no 0x
// prefix) to the function it dispatches to. Built once per contract
// and never mutated; constructors contribute no entry.
type SelectorTable map[string]*ContractFunction

// BuildSelectorTable computes the canonical signature of every
// non-constructor function in the ABI and indexes it by the first 4
// bytes of keccak256(signature). Collisions within a well-formed ABI
// are not expected and are not resolved if they occur: the last
// function processed simply overwrites the earlier entry.
func BuildSelectorTable(a *ABI) SelectorTable {
	table := make(SelectorTable, len(a.Functions))

	for i := range a.Functions {
		fn := &a.Functions[i]
		if fn.Type == Constructor {
			continue
		}

		sig := canonicalSignature(fn)
		table[Selector(sig)] = fn
	}

	return table
}

// Selector computes the 8-hex-character method selector for a
// canonical signature string, e.g. "submit(string,bytes)".
func Selector(signature string) string {
	hash := crypto.Keccak256([]byte(signature))
	return hex.EncodeToString(hash[:4])
}

func canonicalSignature(fn *ContractFunction) string {
	var b strings.Builder
	b.WriteString(fn.Name)
	b.WriteByte('(')
	for i, in := range fn.Inputs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(in.Type))
	}
	b.WriteByte(')')
	return b.String()
}
