package sign

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"testing"

	"golang.org/x/crypto/ed25519"
)

func TestParsePublicKeyDERRsa(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}

	pk, err := ParsePublicKeyDER(der, KindRsaPss2048)
	if err != nil {
		t.Fatalf("ParsePublicKeyDER: %v", err)
	}
	if pk.Rsa == nil || pk.Rsa.N.Cmp(priv.PublicKey.N) != 0 {
		t.Fatal("parsed RSA key does not match original")
	}
}

func TestParsePublicKeyDEREcdsa(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}

	pk, err := ParsePublicKeyDER(der, KindEcdsaP256)
	if err != nil {
		t.Fatalf("ParsePublicKeyDER: %v", err)
	}
	if pk.Ec == nil || pk.Ec.X.Cmp(priv.PublicKey.X) != 0 {
		t.Fatal("parsed ECDSA key does not match original")
	}
}

func TestParsePublicKeyDEREd25519(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	pk, err := ParsePublicKeyDER(pub, KindEd25519)
	if err != nil {
		t.Fatalf("ParsePublicKeyDER: %v", err)
	}
	if !pk.Ed.Equal(pub) {
		t.Fatal("parsed Ed25519 key does not match original")
	}
}

func TestParsePublicKeyDEREd25519WrongSize(t *testing.T) {
	if _, err := ParsePublicKeyDER([]byte{1, 2, 3}, KindEd25519); err == nil {
		t.Fatal("expected error for undersized Ed25519 key")
	}
}

func TestPublicKeyHashIsStableAndDistinct(t *testing.T) {
	pub1, _, _ := ed25519.GenerateKey(rand.Reader)
	pub2, _, _ := ed25519.GenerateKey(rand.Reader)

	pk1, err := ParsePublicKeyDER(pub1, KindEd25519)
	if err != nil {
		t.Fatalf("ParsePublicKeyDER: %v", err)
	}
	pk2, err := ParsePublicKeyDER(pub2, KindEd25519)
	if err != nil {
		t.Fatalf("ParsePublicKeyDER: %v", err)
	}

	if pk1.Hash() != pk1.Hash() {
		t.Fatal("hash is not stable across calls")
	}
	if pk1.Hash() == pk2.Hash() {
		t.Fatal("distinct keys produced the same 4-byte hash (extremely unlikely, check wiring)")
	}
}
