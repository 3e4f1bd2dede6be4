// Package abi renders the Ethereum contract ABI of a checked contract and
// computes the 4-byte function selectors and 32-byte event topics used by
// the Yul dispatcher.
package abi

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/s6ruby/srubyc/analysis"
	"github.com/s6ruby/srubyc/lang/types"
)

// Param is one input or output of an ABI entry.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Entry is one element of the contract ABI array.
type Entry struct {
	Type            string  `json:"type"`
	Name            string  `json:"name,omitempty"`
	Inputs          []Param `json:"inputs"`
	Outputs         []Param `json:"outputs,omitempty"`
	StateMutability string  `json:"stateMutability,omitempty"`
	Anonymous       *bool   `json:"anonymous,omitempty"`
}

// CanonicalType maps a dialect type onto its ABI type name. Enums are
// ordinals and travel as uint8, the Solidity convention.
func CanonicalType(t types.Type) (string, error) {
	switch t.Kind() {
	case types.KindBool:
		return "bool", nil
	case types.KindInteger:
		return "uint256", nil
	case types.KindAddress:
		return "address", nil
	case types.KindString:
		return "string", nil
	case types.KindBytes:
		return "bytes", nil
	case types.KindEnum:
		return "uint8", nil
	default:
		return "", fmt.Errorf("type %s has no ABI representation", t)
	}
}

// Signature renders the canonical signature a selector is computed from,
// e.g. transfer(address,uint256).
func Signature(name string, inputs []Param) string {
	parts := make([]string, len(inputs))
	for i, in := range inputs {
		parts[i] = in.Type
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// Selector returns the first four Keccak-256 bytes of a signature, hex
// encoded without a 0x prefix.
func Selector(signature string) string {
	return keccak(signature)[:8]
}

// EventTopic returns the full Keccak-256 hash of an event signature, hex
// encoded without a 0x prefix.
func EventTopic(signature string) string {
	return keccak(signature)
}

func keccak(input string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))
}

// FromTable builds the ABI of a checked contract. rename maps dialect
// method and parameter names onto the target's convention; pass the
// identity function to keep snake_case.
func FromTable(table *analysis.Table, rename func(string) string) ([]Entry, error) {
	if rename == nil {
		rename = func(s string) string { return s }
	}

	var entries []Entry

	if table.Setup != nil {
		inputs, err := paramList(table.Setup.Params, rename)
		if err != nil {
			return nil, fmt.Errorf("constructor: %w", err)
		}
		entries = append(entries, Entry{
			Type:            "constructor",
			Inputs:          inputs,
			StateMutability: "nonpayable",
		})
	}

	for _, ev := range table.OrderedEvents() {
		inputs, err := paramList(ev.Fields, rename)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.Name, err)
		}
		anonymous := false
		entries = append(entries, Entry{
			Type:      "event",
			Name:      ev.Name,
			Inputs:    inputs,
			Anonymous: &anonymous,
		})
	}

	for _, m := range table.OrderedMethods() {
		inputs, err := paramList(m.Params, rename)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}

		entry := Entry{
			Type:            "function",
			Name:            rename(m.Name),
			Inputs:          inputs,
			StateMutability: mutability(m),
		}
		if m.Return.Kind() != types.KindVoid {
			out, err := CanonicalType(m.Return)
			if err != nil {
				return nil, fmt.Errorf("method %s: %w", m.Name, err)
			}
			entry.Outputs = []Param{{Name: "", Type: out}}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// MethodSelector computes the dispatcher selector of one checked method.
func MethodSelector(m *analysis.Method, rename func(string) string) (string, error) {
	if rename == nil {
		rename = func(s string) string { return s }
	}
	inputs, err := paramList(m.Params, rename)
	if err != nil {
		return "", err
	}
	return Selector(Signature(rename(m.Name), inputs)), nil
}

// JSON renders the entries as the conventional indented ABI document.
func JSON(entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render ABI: %w", err)
	}
	return string(out), nil
}

func paramList(params []analysis.Param, rename func(string) string) ([]Param, error) {
	out := make([]Param, 0, len(params))
	for _, p := range params {
		abiType, err := CanonicalType(p.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, Param{Name: rename(p.Name), Type: abiType})
	}
	return out, nil
}

func mutability(m *analysis.Method) string {
	switch {
	case m.Payable():
		return "payable"
	case m.ReadOnly():
		return "view"
	default:
		return "nonpayable"
	}
}
