/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package sign implements the polymorphic signature verifier of §4.3:
// it maps a KEYHASH/PUBKEY/KEYID TLV to a built-in key index, and
// verifies a signature TLV against a precomputed digest (or,
// in pure-Ed25519 mode, the raw signed message). Key parsing mirrors
// the PEM-handling idiom of the ancestor tooling's artifact/sec and
// artifact/image key files, generalized to also carry the public-key
// side used at verification time.
package sign

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"

	"golang.org/x/crypto/ed25519"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// Kind is the signature algorithm family a PublicKey belongs to.
type Kind int

const (
	KindRsaPss2048 Kind = iota
	KindRsaPss3072
	KindEcdsaP256
	KindEcdsaP384
	KindEd25519
)

// PublicKey is a parsed boot-time verification key. Exactly one of the
// concrete fields is populated, selected by Kind.
type PublicKey struct {
	Kind Kind
	Rsa  *rsa.PublicKey
	Ec   *ecdsa.PublicKey
	Ed   ed25519.PublicKey

	// der is the encoded form used to compute KeyHash, captured at
	// parse time so re-encoding (which can differ byte-for-byte from
	// the signer's own encoding) never enters the comparison.
	der []byte
}

// ParsePublicKeyPEM parses a "PUBLIC KEY" (PKIX/SPKI) PEM block into a
// PublicKey of the given algorithm kind.
func ParsePublicKeyPEM(pemBytes []byte, kind Kind) (PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return PublicKey{}, mcuerr.New("sign: not a PEM block")
	}
	return ParsePublicKeyDER(block.Bytes, kind)
}

// ParsePublicKeyDER parses a PKIX/SPKI DER-encoded public key, except
// for Ed25519 where der is the raw 32-byte point (mcuboot embeds
// Ed25519 keys unwrapped, not PKIX-wrapped).
func ParsePublicKeyDER(der []byte, kind Kind) (PublicKey, error) {
	pk := PublicKey{Kind: kind, der: append([]byte(nil), der...)}

	switch kind {
	case KindRsaPss2048, KindRsaPss3072:
		pub, err := x509.ParsePKIXPublicKey(der)
		if err != nil {
			return pk, mcuerr.Wrap(err)
		}
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return pk, mcuerr.New("sign: key is not RSA")
		}
		pk.Rsa = rsaPub

	case KindEcdsaP256, KindEcdsaP384:
		pub, err := x509.ParsePKIXPublicKey(der)
		if err != nil {
			return pk, mcuerr.Wrap(err)
		}
		ecPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return pk, mcuerr.New("sign: key is not ECDSA")
		}
		pk.Ec = ecPub

	case KindEd25519:
		if len(der) != ed25519.PublicKeySize {
			return pk, mcuerr.Newf(
				"sign: ed25519 public key must be %d bytes, got %d",
				ed25519.PublicKeySize, len(der))
		}
		pk.Ed = ed25519.PublicKey(append([]byte(nil), der...))

	default:
		return pk, mcuerr.Newf("sign: unknown key kind %d", kind)
	}

	return pk, nil
}

// Hash returns the first 4 bytes of the SHA-256 digest of the key's
// raw encoding, the value an in-flash KEYHASH TLV is compared against
// (artifact/sec.RawKeyHash's convention).
func (k PublicKey) Hash() [4]byte {
	sum := sha256.Sum256(k.der)
	var out [4]byte
	copy(out[:], sum[:4])
	return out
}

// sigTlvType is the TLV type a signature produced by this key kind is
// carried under.
func (k Kind) sigTlvType() uint16 {
	switch k {
	case KindRsaPss2048:
		return 0x20 // image.TlvRsa2048Pss
	case KindRsaPss3072:
		return 0x23 // image.TlvRsa3072Pss
	case KindEcdsaP256, KindEcdsaP384:
		return 0x22 // image.TlvEcdsaSig
	case KindEd25519:
		return 0x24 // image.TlvEd25519
	default:
		return 0
	}
}
