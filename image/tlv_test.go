package image

import (
	"bytes"
	"testing"
)

type byteReader struct {
	data []byte
}

func (r byteReader) ReadTlvArea(offset, length int) ([]byte, error) {
	if offset < 0 || offset+length > len(r.data) {
		return nil, errOutOfRange
	}
	return r.data[offset : offset+length], nil
}

var errOutOfRange = &rangeErr{}

type rangeErr struct{}

func (*rangeErr) Error() string { return "out of range" }

func buildTlvArea(protected, unprotected []Tlv) []byte {
	return EncodeTlvArea(protected, unprotected)
}

func TestTlvIteratorRoundTrip(t *testing.T) {
	protected := []Tlv{
		{Type: TlvSha256, Data: bytes.Repeat([]byte{0xab}, 32)},
	}
	unprotected := []Tlv{
		{Type: TlvEcdsaSig, Data: bytes.Repeat([]byte{0x01}, 72)},
		{Type: TlvKeyId, Data: []byte{0x03}},
	}

	area := buildTlvArea(protected, unprotected)
	r := byteReader{data: area}

	it, err := NewIterator(r, 0, 0, len(protected[0].Data)+tlvSize+infoSize, 0, 0, false)
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}

	var got []Tlv
	for {
		rec, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if rec == nil {
			break
		}
		got = append(got, *rec)
	}

	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[0].Type != TlvSha256 || !bytes.Equal(got[0].Data, protected[0].Data) {
		t.Fatalf("record 0 mismatch: %+v", got[0])
	}
	if got[1].Type != TlvEcdsaSig || !bytes.Equal(got[1].Data, unprotected[0].Data) {
		t.Fatalf("record 1 mismatch: %+v", got[1])
	}
	if got[2].Type != TlvKeyId {
		t.Fatalf("record 2 mismatch: %+v", got[2])
	}
}

func TestTlvIteratorProtectedOnlyFilter(t *testing.T) {
	protected := []Tlv{{Type: TlvSha256, Data: bytes.Repeat([]byte{0xcd}, 32)}}
	unprotected := []Tlv{{Type: TlvEd25519, Data: bytes.Repeat([]byte{0x02}, 64)}}

	area := buildTlvArea(protected, unprotected)
	r := byteReader{data: area}

	protLen := infoSize + tlvSize + len(protected[0].Data)
	it, err := NewIterator(r, 0, 0, protLen, 0, 0, true)
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}

	rec, err := it.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec == nil || rec.Type != TlvSha256 {
		t.Fatalf("expected protected SHA256 record, got %+v", rec)
	}

	rec, err = it.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected iteration to stop after protected region, got %+v", rec)
	}
}

func TestTlvIteratorRejectsDisallowedUnprotectedType(t *testing.T) {
	unprotected := []Tlv{{Type: TlvDependency, Data: []byte{0x01, 0x02}}}
	area := buildTlvArea(nil, unprotected)
	r := byteReader{data: area}

	it, err := NewIterator(r, 0, 0, 0, 0, 0, false)
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	if _, err := it.Next(); err == nil {
		t.Fatal("expected rejection of DEPENDENCY TLV in unprotected region")
	}
}

func TestTlvIteratorBadInfoMagic(t *testing.T) {
	area := buildTlvArea(nil, nil)
	// Corrupt the unprotected info magic (there is no protected region
	// here, so corrupt the only info record present).
	area[0] = 0x00
	r := byteReader{data: area}

	if _, err := NewIterator(r, 0, 0, 0, 0, 0, false); err == nil {
		t.Fatal("expected error for corrupted info magic")
	}
}

func TestTlvIteratorTypeFilter(t *testing.T) {
	unprotected := []Tlv{
		{Type: TlvEcdsaSig, Data: []byte{0xaa}},
		{Type: TlvKeyId, Data: []byte{0x01}},
		{Type: TlvEcdsaSig, Data: []byte{0xbb}},
	}
	area := buildTlvArea(nil, unprotected)
	r := byteReader{data: area}

	it, err := NewIterator(r, 0, 0, 0, 0, TlvEcdsaSig, false)
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}

	var count int
	for {
		rec, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if rec == nil {
			break
		}
		if rec.Type != TlvEcdsaSig {
			t.Fatalf("filter leaked non-matching type %#x", rec.Type)
		}
		count++
	}
	if count != 2 {
		t.Fatalf("got %d filtered records, want 2", count)
	}
}
