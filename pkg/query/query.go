// Package query implements the fixed two-tag query protocol: a compact
// binary encoding of a request tag, and the corresponding binary-encoded
// result. Mirrors pkg/tx/codec.go's CBOR wire style.
package query

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/certen/privacy-ledger/pkg/vm"
)

// Tag identifies which query is being made.
type Tag uint8

const (
	GetRecords Tag = iota
	GetSpentSerialNumbers
)

// ErrUnknownTag is returned by DecodeRequest for any tag outside the
// fixed enum.
var ErrUnknownTag = errors.New("query: unknown tag")

type wireRequest struct {
	Tag uint8 `cbor:"tag"`
}

// EncodeRequest produces the wire form of a bare query tag.
func EncodeRequest(tag Tag) ([]byte, error) {
	data, err := cbor.Marshal(wireRequest{Tag: uint8(tag)})
	if err != nil {
		return nil, fmt.Errorf("query: encode request: %w", err)
	}
	return data, nil
}

// DecodeRequest parses a query tag from query.data.
func DecodeRequest(data []byte) (Tag, error) {
	var w wireRequest
	if err := cbor.Unmarshal(data, &w); err != nil {
		return 0, fmt.Errorf("query: decode request: %w", err)
	}
	tag := Tag(w.Tag)
	if tag != GetRecords && tag != GetSpentSerialNumbers {
		return 0, fmt.Errorf("%w: %d", ErrUnknownTag, w.Tag)
	}
	return tag, nil
}

type wireRecord struct {
	Commitment [32]byte `cbor:"commitment"`
	Serial     [32]byte `cbor:"serial"`
	Ciphertext []byte   `cbor:"ciphertext"`
}

// EncodeRecords serializes the result of record_store.scan().
func EncodeRecords(records []vm.Record) ([]byte, error) {
	wire := make([]wireRecord, len(records))
	for i, r := range records {
		wire[i] = wireRecord{Commitment: [32]byte(r.Commitment), Serial: [32]byte(r.Serial), Ciphertext: r.Ciphertext}
	}
	data, err := cbor.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("query: encode records: %w", err)
	}
	return data, nil
}

// DecodeRecords is the inverse of EncodeRecords, exercised by client
// tests and end-to-end scenarios that read a query response back.
func DecodeRecords(data []byte) ([]vm.Record, error) {
	var wire []wireRecord
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("query: decode records: %w", err)
	}
	out := make([]vm.Record, len(wire))
	for i, w := range wire {
		out[i] = vm.Record{Commitment: vm.Commitment(w.Commitment), Serial: vm.SerialNumber(w.Serial), Ciphertext: w.Ciphertext}
	}
	return out, nil
}

// EncodeSerialNumbers serializes the result of
// record_store.scan_spent().
func EncodeSerialNumbers(serials []vm.SerialNumber) ([]byte, error) {
	wire := make([][32]byte, len(serials))
	for i, sn := range serials {
		wire[i] = [32]byte(sn)
	}
	data, err := cbor.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("query: encode serial numbers: %w", err)
	}
	return data, nil
}

// DecodeSerialNumbers is the inverse of EncodeSerialNumbers.
func DecodeSerialNumbers(data []byte) ([]vm.SerialNumber, error) {
	var wire [][32]byte
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("query: decode serial numbers: %w", err)
	}
	out := make([]vm.SerialNumber, len(wire))
	for i, w := range wire {
		out[i] = vm.SerialNumber(w)
	}
	return out, nil
}
