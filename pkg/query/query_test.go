package query

import (
	"bytes"
	"testing"

	"github.com/certen/privacy-ledger/pkg/vm"
)

func TestEncodeDecodeRequest(t *testing.T) {
	for _, tag := range []Tag{GetRecords, GetSpentSerialNumbers} {
		data, err := EncodeRequest(tag)
		if err != nil {
			t.Fatalf("encode %v: %v", tag, err)
		}
		got, err := DecodeRequest(data)
		if err != nil {
			t.Fatalf("decode %v: %v", tag, err)
		}
		if got != tag {
			t.Errorf("roundtrip: got %v, want %v", got, tag)
		}
	}
}

func TestDecodeRequest_UnknownTag(t *testing.T) {
	data, err := EncodeRequest(Tag(99))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRequest(data); err == nil {
		t.Error("expected ErrUnknownTag for an out-of-range tag")
	}
}

func TestEncodeDecodeRecords(t *testing.T) {
	var c vm.Commitment
	var sn vm.SerialNumber
	c[0], sn[0] = 1, 2
	records := []vm.Record{{Commitment: c, Serial: sn, Ciphertext: []byte("hi")}}

	data, err := EncodeRecords(records)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeRecords(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Commitment != c || got[0].Serial != sn || !bytes.Equal(got[0].Ciphertext, []byte("hi")) {
		t.Errorf("roundtrip mismatch: got %+v", got)
	}
}

func TestEncodeDecodeSerialNumbers(t *testing.T) {
	var sn1, sn2 vm.SerialNumber
	sn1[0], sn2[0] = 1, 2
	data, err := EncodeSerialNumbers([]vm.SerialNumber{sn1, sn2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSerialNumbers(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0] != sn1 || got[1] != sn2 {
		t.Errorf("roundtrip mismatch: got %v", got)
	}
}
