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

// Package encrypt implements the encryption subsystem of §4.4:
// unwrapping an image's symmetric payload key from its ENC_* TLV using
// one of {RSA-OAEP, AES-KW, ECIES-P256, ECIES-X25519}, and an AES-CTR
// payload cipher whose counter is derived from the image byte offset.
// Key parsing follows the ancestor tooling's artifact/sec/key.go; the
// ECIES wire layout (ephemeral pubkey || HMAC tag || wrapped key) is
// grounded on the original bootutil enc_key_public.h layout.
package encrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// Kind is the key-unwrap algorithm an ENC_* TLV was produced with.
type Kind int

const (
	KindRsaOaep Kind = iota
	KindAesKw
	KindEciesP256
	KindEciesX25519
)

// Wire geometry for the ECIES TLVs, lifted byte-for-byte from the
// reference enc_key_public.h (EC_PUBK_LEN/EC_TAG_LEN/EC_CIPHERKEY_LEN):
// ephemeral pubkey, then an HMAC-SHA256 tag, then the wrapped key.
const (
	ecPubKeyLenP256   = 65 // uncompressed SEC1 point: 0x04 || X || Y
	ecPubKeyLenX25519 = 32
	ecTagLen          = 32 // HMAC-SHA256, BOOT_HMAC_SIZE in the non-SHA512 build
)

// PrivateKey is a parsed boot-time key-unwrap key. Exactly one of the
// concrete fields is populated, selected by Kind.
type PrivateKey struct {
	Kind Kind

	Rsa *rsa.PrivateKey

	// Kek is the AES key-encryption-key for AES-KW unwrap.
	Kek cipher.Block

	// Ec is the boot loader's static ECIES-P256 key pair.
	Ec *ecdsa.PrivateKey

	// X25519 is the boot loader's static ECIES-X25519 private scalar.
	X25519 [32]byte
}

// ParseKekBase64 decodes a base64-encoded 128-bit AES key-encryption
// key, the form the build tool embeds it in for AES-KW (mirrors
// artifact/sec.ParseKeBase64).
func ParseKekBase64(b []byte) (cipher.Block, error) {
	kek, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return nil, mcuerr.Wrapf(err, "encrypt: decoding key-encryption key")
	}
	if len(kek) != 16 {
		return nil, mcuerr.Newf("encrypt: key-encryption key must be 16 bytes, got %d", len(kek))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, mcuerr.Wrapf(err, "encrypt: constructing AES-KW cipher")
	}
	return block, nil
}

// ecPubKeyLen returns the expected ephemeral-public-key length for an
// ECIES kind.
func (k Kind) ecPubKeyLen() int {
	switch k {
	case KindEciesP256:
		return ecPubKeyLenP256
	case KindEciesX25519:
		return ecPubKeyLenX25519
	default:
		return 0
	}
}

var p256 = elliptic.P256()
