package hashimg

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

type memSource struct {
	data []byte
}

func (m memSource) Read(offset, length int) ([]byte, error) {
	out := make([]byte, length)
	copy(out, m.data[offset:offset+length])
	return out, nil
}

func TestDigestMatchesStdlibSha256(t *testing.T) {
	hdr := bytes.Repeat([]byte{0x01}, 32)
	body := bytes.Repeat([]byte{0x02}, 100)
	prot := bytes.Repeat([]byte{0x03}, 16)
	all := append(append(append([]byte{}, hdr...), body...), prot...)

	want := sha256.Sum256(all)

	src := memSource{data: all}
	got, err := Digest(Sha256, src, len(hdr), len(body), len(prot), 17, nil)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if !bytes.Equal(got, want[:]) {
		t.Fatalf("digest mismatch:\n got  %x\n want %x", got, want)
	}
}

func TestDigestChunkSizeIndependence(t *testing.T) {
	hdr := bytes.Repeat([]byte{0xaa}, 32)
	body := bytes.Repeat([]byte{0xbb}, 257)
	prot := bytes.Repeat([]byte{0xcc}, 40)
	all := append(append(append([]byte{}, hdr...), body...), prot...)
	src := memSource{data: all}

	d1, err := Digest(Sha256, src, len(hdr), len(body), len(prot), 13, nil)
	if err != nil {
		t.Fatalf("Digest (chunk 13): %v", err)
	}
	d2, err := Digest(Sha256, src, len(hdr), len(body), len(prot), 512, nil)
	if err != nil {
		t.Fatalf("Digest (chunk 512): %v", err)
	}
	if !bytes.Equal(d1, d2) {
		t.Fatal("digest should not depend on chunk size")
	}
}

// xorDecryptor flips every payload byte with a fixed key byte, so the
// test can assert the plaintext (not ciphertext) was hashed.
type xorDecryptor struct{ key byte }

func (x xorDecryptor) DecryptChunk(payloadOffset int, buf []byte) {
	for i := range buf {
		buf[i] ^= x.key
	}
}

func TestDigestDecryptsOnlyPayloadRegion(t *testing.T) {
	hdr := bytes.Repeat([]byte{0x11}, 32)
	plainBody := bytes.Repeat([]byte{0x22}, 64)
	prot := bytes.Repeat([]byte{0x33}, 8)

	key := byte(0x7f)
	cipherBody := make([]byte, len(plainBody))
	for i, b := range plainBody {
		cipherBody[i] = b ^ key
	}

	onFlash := append(append(append([]byte{}, hdr...), cipherBody...), prot...)
	src := memSource{data: onFlash}

	got, err := Digest(Sha256, src, len(hdr), len(plainBody), len(prot), 23, xorDecryptor{key: key})
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}

	wantData := append(append(append([]byte{}, hdr...), plainBody...), prot...)
	want := sha256.Sum256(wantData)
	if !bytes.Equal(got, want[:]) {
		t.Fatalf("digest over decrypted payload mismatch:\n got  %x\n want %x", got, want[:])
	}
}

func TestKindSize(t *testing.T) {
	if Sha256.Size() != 32 {
		t.Fatalf("Sha256 size = %d, want 32", Sha256.Size())
	}
	if Sha384.Size() != 48 {
		t.Fatalf("Sha384 size = %d, want 48", Sha384.Size())
	}
	if Sha512.Size() != 64 {
		t.Fatalf("Sha512 size = %d, want 64", Sha512.Size())
	}
}
