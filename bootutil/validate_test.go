package bootutil

import (
	"crypto/sha256"
	"testing"

	"golang.org/x/crypto/ed25519"

	"github.com/mcu-tools/mcuboot-sub001/flash"
	"github.com/mcu-tools/mcuboot-sub001/hashimg"
	"github.com/mcu-tools/mcuboot-sub001/image"
	"github.com/mcu-tools/mcuboot-sub001/sign"
)

// buildSignedImage lays out a header + payload + unprotected TLV region
// (SHA256, KEYHASH, Ed25519 signature) into a fresh MemArea, the same
// shape a signing tool would produce, and returns the area alongside
// the header it wrote.
func buildSignedImage(t *testing.T, payload []byte, pub ed25519.PublicKey, priv ed25519.PrivateKey, corruptSig bool) (*flash.MemArea, image.Header) {
	t.Helper()

	hdr := image.Header{
		Magic:   image.HeaderMagic,
		HdrSize: image.HeaderSize,
		ImgSize: uint32(len(payload)),
		Vers:    image.Version{Major: 1},
	}
	hdrBytes := hdr.Encode()

	sum := sha256.Sum256(append(append([]byte{}, hdrBytes...), payload...))

	keyHash := sha256.Sum256([]byte(pub))

	sig := ed25519.Sign(priv, sum[:])
	if corruptSig {
		sig[0] ^= 0xff
	}

	tlvArea := image.EncodeTlvArea(nil, []image.Tlv{
		{Type: image.TlvSha256, Data: sum[:]},
		{Type: image.TlvKeyHash, Data: keyHash[:4]},
		{Type: image.TlvEd25519, Data: sig},
	})

	areaSize := 0x10000
	a, err := flash.NewMemArea(flash.Descriptor{
		Name: "slot", ID: 1, Size: areaSize, SectorSize: 0x1000, EraseVal: 0xff,
	}, 1)
	if err != nil {
		t.Fatalf("NewMemArea: %v", err)
	}

	if err := a.Write(0, hdrBytes); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := a.Write(len(hdrBytes), payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	if err := a.Write(len(hdrBytes)+len(payload), tlvArea); err != nil {
		t.Fatalf("write tlv area: %v", err)
	}

	return a, hdr
}

func ed25519Ring(pub ed25519.PublicKey) sign.Ring {
	pk, _ := sign.ParsePublicKeyDER([]byte(pub), sign.KindEd25519)
	return sign.Ring{Entries: []sign.Entry{{Key: pk, MustSign: true}}}
}

func TestValidateAcceptsWellFormedImage(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	payload := []byte("this is the application image payload")
	a, hdr := buildSignedImage(t, payload, pub, priv, false)

	outcome, err := Validate(ValidateParams{
		Area:         a,
		Header:       hdr,
		HashKind:     hashimg.Sha256,
		ChunkSize:    16,
		Ring:         ed25519Ring(pub),
		MinSignCount: 1,
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !outcome.IsSuccess() {
		t.Fatal("expected a well-formed, correctly signed image to validate")
	}
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	payload := []byte("another payload body")
	a, hdr := buildSignedImage(t, payload, pub, priv, true)

	outcome, err := Validate(ValidateParams{
		Area:         a,
		Header:       hdr,
		HashKind:     hashimg.Sha256,
		ChunkSize:    16,
		Ring:         ed25519Ring(pub),
		MinSignCount: 1,
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if outcome.IsSuccess() {
		t.Fatal("expected a tampered signature to fail validation")
	}
}

func TestValidateRejectsTamperedPayload(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	payload := []byte("payload before tampering happens here")
	a, hdr := buildSignedImage(t, payload, pub, priv, false)

	if err := a.Scramble(int(hdr.HdrSize), 1); err != nil {
		t.Fatalf("Scramble: %v", err)
	}

	outcome, err := Validate(ValidateParams{
		Area:         a,
		Header:       hdr,
		HashKind:     hashimg.Sha256,
		ChunkSize:    16,
		Ring:         ed25519Ring(pub),
		MinSignCount: 1,
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if outcome.IsSuccess() {
		t.Fatal("expected a payload-tampered image to fail validation (hash mismatch)")
	}
}

func TestValidateRejectsStaleSecurityCounter(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	payload := []byte("payload with no security counter TLV at all")
	a, hdr := buildSignedImage(t, payload, pub, priv, false)

	outcome, err := Validate(ValidateParams{
		Area:               a,
		Header:             hdr,
		HashKind:           hashimg.Sha256,
		ChunkSize:          16,
		Ring:               ed25519Ring(pub),
		MinSignCount:       1,
		SecurityCounterMin: 1,
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if outcome.IsSuccess() {
		t.Fatal("expected validation to fail when SecurityCounterMin is set but no SEC_CNT TLV is present")
	}
}
