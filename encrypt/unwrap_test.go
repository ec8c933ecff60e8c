package encrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"testing"

	keywrap "github.com/NickBall/go-aes-key-wrap"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

func TestUnwrapKeyRsaOaep(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	secret := bytes.Repeat([]byte{0x5a}, 16)

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &priv.PublicKey, secret, nil)
	if err != nil {
		t.Fatalf("EncryptOAEP: %v", err)
	}

	got, err := UnwrapKey(PrivateKey{Kind: KindRsaOaep, Rsa: priv}, wrapped)
	if err != nil {
		t.Fatalf("UnwrapKey: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatalf("unwrapped secret mismatch: got %x want %x", got, secret)
	}
}

func TestUnwrapKeyAesKw(t *testing.T) {
	kek := bytes.Repeat([]byte{0x11}, 16)
	block, err := aes.NewCipher(kek)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	secret := bytes.Repeat([]byte{0x42}, 16)

	wrapped, err := keywrap.Wrap(block, secret)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	kekB64 := base64.StdEncoding.EncodeToString(kek)
	parsedBlock, err := ParseKekBase64([]byte(kekB64))
	if err != nil {
		t.Fatalf("ParseKekBase64: %v", err)
	}

	got, err := UnwrapKey(PrivateKey{Kind: KindAesKw, Kek: parsedBlock}, wrapped)
	if err != nil {
		t.Fatalf("UnwrapKey: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatalf("unwrapped secret mismatch: got %x want %x", got, secret)
	}
}

func TestParseKekBase64RejectsWrongSize(t *testing.T) {
	tooShort := base64.StdEncoding.EncodeToString(make([]byte, 8))
	if _, err := ParseKekBase64([]byte(tooShort)); err == nil {
		t.Fatal("expected error for undersized key-encryption key")
	}
}

// buildEciesTlv assembles a synthetic ENC_EC256/ENC_X25519 TLV value
// the same way a signing tool would: ephemeral pubkey || HMAC tag ||
// AES-CTR-wrapped secret, all derived from the shared secret via the
// same HKDF scheme UnwrapKey expects.
func buildEciesTlv(t *testing.T, shared, secret, ephemeralPub []byte) []byte {
	t.Helper()

	okm := make([]byte, 64)
	kdf := hkdf.New(sha256.New, shared, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, okm); err != nil {
		t.Fatalf("hkdf expand: %v", err)
	}
	aesKey, hmacKey := okm[:32], okm[32:64]

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	wrapped := make([]byte, len(secret))
	cipher.NewCTR(block, make([]byte, aes.BlockSize)).XORKeyStream(wrapped, secret)

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(wrapped)
	tag := mac.Sum(nil)

	out := append([]byte{}, ephemeralPub...)
	out = append(out, tag...)
	out = append(out, wrapped...)
	return out
}

func TestUnwrapKeyEciesP256(t *testing.T) {
	bootPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	ephemeralPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey (ephemeral): %v", err)
	}
	ephemeralPub := elliptic.Marshal(elliptic.P256(), ephemeralPriv.PublicKey.X, ephemeralPriv.PublicKey.Y)

	sx, _ := elliptic.P256().ScalarMult(bootPriv.PublicKey.X, bootPriv.PublicKey.Y, ephemeralPriv.D.Bytes())
	shared := sx.Bytes()
	if len(shared) < 32 {
		padded := make([]byte, 32)
		copy(padded[32-len(shared):], shared)
		shared = padded
	}

	secret := bytes.Repeat([]byte{0x77}, 16)
	tlv := buildEciesTlv(t, shared, secret, ephemeralPub)

	got, err := UnwrapKey(PrivateKey{Kind: KindEciesP256, Ec: bootPriv}, tlv)
	if err != nil {
		t.Fatalf("UnwrapKey: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatalf("unwrapped secret mismatch: got %x want %x", got, secret)
	}
}

func TestUnwrapKeyEciesP256RejectsTamperedTag(t *testing.T) {
	bootPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	ephemeralPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey (ephemeral): %v", err)
	}
	ephemeralPub := elliptic.Marshal(elliptic.P256(), ephemeralPriv.PublicKey.X, ephemeralPriv.PublicKey.Y)

	sx, _ := elliptic.P256().ScalarMult(bootPriv.PublicKey.X, bootPriv.PublicKey.Y, ephemeralPriv.D.Bytes())
	shared := sx.Bytes()
	if len(shared) < 32 {
		padded := make([]byte, 32)
		copy(padded[32-len(shared):], shared)
		shared = padded
	}

	secret := bytes.Repeat([]byte{0x99}, 16)
	tlv := buildEciesTlv(t, shared, secret, ephemeralPub)
	tlv[len(tlv)-1] ^= 0xff // corrupt the wrapped key, not the tag itself

	if _, err := UnwrapKey(PrivateKey{Kind: KindEciesP256, Ec: bootPriv}, tlv); err == nil {
		t.Fatal("expected HMAC tag mismatch for tampered ciphertext")
	}
}

func TestUnwrapKeyEciesX25519(t *testing.T) {
	var bootPriv, bootPub [32]byte
	if _, err := io.ReadFull(rand.Reader, bootPriv[:]); err != nil {
		t.Fatalf("rand: %v", err)
	}
	pub, err := curve25519.X25519(bootPriv[:], curve25519.Basepoint)
	if err != nil {
		t.Fatalf("X25519: %v", err)
	}
	copy(bootPub[:], pub)

	ephemeralPriv, ephemeralPub, err := generateEphemeralX25519()
	if err != nil {
		t.Fatalf("generateEphemeralX25519: %v", err)
	}

	shared, err := curve25519.X25519(ephemeralPriv[:], bootPub[:])
	if err != nil {
		t.Fatalf("X25519 shared: %v", err)
	}

	secret := bytes.Repeat([]byte{0x55}, 16)
	tlv := buildEciesTlv(t, shared, secret, ephemeralPub[:])

	got, err := UnwrapKey(PrivateKey{Kind: KindEciesX25519, X25519: bootPriv}, tlv)
	if err != nil {
		t.Fatalf("UnwrapKey: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatalf("unwrapped secret mismatch: got %x want %x", got, secret)
	}
}
