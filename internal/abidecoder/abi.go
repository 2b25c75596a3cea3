// Package abidecoder parses a contract ABI document, builds a
// method-selector dispatch table, and decodes raw transaction input
// bytes into structured, named argument values.
package abidecoder

import (
	"encoding/json"
	"fmt"
)

// FunctionType is the ABI entry kind.
type FunctionType string

const (
	Function    FunctionType = "function"
	Constructor FunctionType = "constructor"
	Receive     FunctionType = "receive"
	Fallback    FunctionType = "fallback"
)

// StateMutability is the declared state-mutability tag of a function.
type StateMutability string

const (
	NonPayable StateMutability = "nonpayable"
	Payable    StateMutability = "payable"
	View       StateMutability = "view"
	Pure       StateMutability = "pure"
)

// ValueType enumerates the ABI scalar/dynamic types this decoder
// understands. Unknown type names fail parsing for that entry.
type ValueType string

const (
	Uint8   ValueType = "uint8"
	Uint16  ValueType = "uint16"
	Uint32  ValueType = "uint32"
	Uint64  ValueType = "uint64"
	Uint128 ValueType = "uint128"
	Uint160 ValueType = "uint160"
	Uint256 ValueType = "uint256"

	Int8   ValueType = "int8"
	Int16  ValueType = "int16"
	Int32  ValueType = "int32"
	Int64  ValueType = "int64"
	Int128 ValueType = "int128"
	Int256 ValueType = "int256"

	Bool    ValueType = "bool"
	Address ValueType = "address"
	Bytes1  ValueType = "bytes1"
	Bytes   ValueType = "bytes"
	String  ValueType = "string"
)

var knownValueTypes = map[ValueType]struct{}{
	Uint8: {}, Uint16: {}, Uint32: {}, Uint64: {}, Uint128: {}, Uint160: {}, Uint256: {},
	Int8: {}, Int16: {}, Int32: {}, Int64: {}, Int128: {}, Int256: {},
	Bool: {}, Address: {}, Bytes1: {}, Bytes: {}, String: {},
}

func (v ValueType) isInteger() bool {
	switch v {
	case Uint8, Uint16, Uint32, Uint64, Uint128, Uint160, Uint256,
		Int8, Int16, Int32, Int64, Int128, Int256:
		return true
	default:
		return false
	}
}

// InOutType is one declared parameter (input or output) of a function.
type InOutType struct {
	Name string    `json:"name"`
	Type ValueType `json:"type"`
}

// ContractFunction is one ABI entry.
type ContractFunction struct {
	Type            FunctionType    `json:"type"`
	Name            string          `json:"name"`
	Inputs          []InOutType     `json:"inputs"`
	Outputs         []InOutType     `json:"outputs"`
	StateMutability StateMutability `json:"stateMutability"`
}

// ABI is the ordered sequence of ContractFunction entries that make up
// a contract's interface.
type ABI struct {
	Functions []ContractFunction
}

// rawFunction mirrors the JSON shape of a single ABI array entry;
// optional members default to empty/none per spec.
type rawFunction struct {
	Type            string      `json:"type"`
	Name            string      `json:"name"`
	Inputs          []rawInOut  `json:"inputs"`
	Outputs         []rawInOut  `json:"outputs"`
	StateMutability string      `json:"stateMutability"`
}

type rawInOut struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Parse accepts a JSON document representing the ABI as a top-level
// array and produces an ABI value. Unknown type names for any entry
// fail the whole parse.
func Parse(doc []byte) (*ABI, error) {
	var raws []rawFunction
	if err := json.Unmarshal(doc, &raws); err != nil {
		return nil, fmt.Errorf("abidecoder: invalid ABI document: %w", err)
	}

	functions := make([]ContractFunction, 0, len(raws))
	for i, raw := range raws {
		fn, err := convertFunction(raw)
		if err != nil {
			return nil, fmt.Errorf("abidecoder: entry %d: %w", i, err)
		}
		functions = append(functions, fn)
	}

	return &ABI{Functions: functions}, nil
}

func convertFunction(raw rawFunction) (ContractFunction, error) {
	fnType := FunctionType(raw.Type)
	switch fnType {
	case Function, Constructor, Receive, Fallback:
	case "":
		fnType = Function
	default:
		return ContractFunction{}, fmt.Errorf("unknown function type: %q", raw.Type)
	}

	inputs, err := convertInOut(raw.Inputs)
	if err != nil {
		return ContractFunction{}, err
	}
	outputs, err := convertInOut(raw.Outputs)
	if err != nil {
		return ContractFunction{}, err
	}

	return ContractFunction{
		Type:            fnType,
		Name:            raw.Name,
		Inputs:          inputs,
		Outputs:         outputs,
		StateMutability: StateMutability(raw.StateMutability),
	}, nil
}

func convertInOut(raws []rawInOut) ([]InOutType, error) {
	out := make([]InOutType, 0, len(raws))
	for _, r := range raws {
		vt := ValueType(r.Type)
		if _, ok := knownValueTypes[vt]; !ok {
			return nil, fmt.Errorf("unknown type: %q", r.Type)
		}
		out = append(out, InOutType{Name: r.Name, Type: vt})
	}
	return out, nil
}
