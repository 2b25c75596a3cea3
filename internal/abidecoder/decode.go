package abidecoder

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strings"
	"unicode/utf8"
)

// wordHexChars is the number of hex characters in one 32-byte ABI word.
const wordHexChars = 64

// Arg is one decoded, named call argument. Order mirrors the function's
// declared input order.
type Arg struct {
	Name  string
	Value interface{}
}

// InputData is the result of decoding a transaction's input bytes: the
// resolved method name and its arguments in declaration order.
type InputData struct {
	MethodName string
	Args       []Arg
}

// Get returns the value bound to the named argument, if any.
func (d *InputData) Get(name string) (interface{}, bool) {
	for _, a := range d.Args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// MarshalJSON renders InputData as {"method_name":..., "args": {...}},
// preserving argument declaration order.
func (d *InputData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"method_name":`)
	nameJSON, err := json.Marshal(d.MethodName)
	if err != nil {
		return nil, err
	}
	buf.Write(nameJSON)
	buf.WriteString(`,"args":{`)
	for i, a := range d.Args {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// Decode splits raw transaction input bytes (hex, optionally 0x
// prefixed) into a method selector and a static frame of 32-byte
// words, one per declared input, and decodes each according to its
// ABI type. It reports false (not an error) when the selector is
// unknown or any declared input's type cannot be decoded — the caller
// drops the transaction in that case.
func Decode(table SelectorTable, inputHex string) (*InputData, bool) {
	raw := strings.TrimPrefix(strings.ToLower(inputHex), "0x")
	if len(raw) < 8 {
		return nil, false
	}

	selector := raw[:8]
	fn, ok := table[selector]
	if !ok {
		return nil, false
	}

	args := make([]Arg, 0, len(fn.Inputs))
	offset := 8

	for _, in := range fn.Inputs {
		if offset+wordHexChars > len(raw) {
			return nil, false
		}
		word := raw[offset : offset+wordHexChars]

		value, ok := decodeValue(raw, word, offset, in.Type)
		if !ok {
			return nil, false
		}

		args = append(args, Arg{Name: in.Name, Value: value})
		offset += wordHexChars
	}

	return &InputData{MethodName: fn.Name, Args: args}, true
}

func decodeValue(fullInput, word string, wordOffset int, t ValueType) (interface{}, bool) {
	switch {
	case t == Address:
		return decodeAddress(word), true
	case t == Bool:
		n, ok := parseWordUint(word)
		if !ok {
			return nil, false
		}
		return n.Cmp(big.NewInt(1)) == 0, true
	case t == String || t == Bytes:
		return decodeDynamic(fullInput, word)
	case t.isInteger():
		n, ok := parseWordUint(word)
		if !ok {
			return nil, false
		}
		return n, true
	default:
		return nil, false
	}
}

// decodeAddress takes the low 20 bytes (last 40 hex chars) of the word
// as a hex string.
func decodeAddress(word string) string {
	return word[len(word)-40:]
}

func parseWordUint(word string) (*big.Int, bool) {
	n, ok := new(big.Int).SetString(word, 16)
	if !ok {
		return nil, false
	}
	return n, true
}

// decodeDynamic resolves a string/bytes argument: the word at the
// declared slot is a byte-offset (relative to the start of the
// argument data, i.e. right after the selector) pointing at the
// element's location; at that location a 32-byte word holds the
// payload length in bytes, followed by the payload itself. The
// payload is decoded as UTF-8 and, when it parses as JSON, kept as
// its parsed structure; otherwise it is returned as the literal
// string.
func decodeDynamic(fullInput, pointerWord string) (interface{}, bool) {
	byteOffset, ok := parseWordUint(pointerWord)
	if !ok {
		return nil, false
	}
	if !byteOffset.IsUint64() {
		return nil, false
	}
	location := int(byteOffset.Uint64()) * 2

	lenStart := 8 + location
	if lenStart+wordHexChars > len(fullInput) {
		return nil, false
	}
	lengthWord := fullInput[lenStart : lenStart+wordHexChars]
	lengthBytes, ok := parseWordUint(lengthWord)
	if !ok || !lengthBytes.IsUint64() {
		return nil, false
	}
	payloadHexLen := int(lengthBytes.Uint64()) * 2

	payloadStart := lenStart + wordHexChars
	payloadEnd := payloadStart + payloadHexLen
	if payloadEnd > len(fullInput) {
		return nil, false
	}

	payload, err := hex.DecodeString(fullInput[payloadStart:payloadEnd])
	if err != nil {
		return nil, false
	}
	if !utf8.Valid(payload) {
		return nil, false
	}

	var parsed interface{}
	if err := json.Unmarshal(payload, &parsed); err == nil {
		return parsed, true
	}
	return string(payload), true
}
