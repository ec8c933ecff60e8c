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

package encrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"io"

	keywrap "github.com/NickBall/go-aes-key-wrap"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// hkdfInfo is the fixed expansion label §4.4 names for the
// ECIES shared-secret-to-AES/HMAC-key derivation.
const hkdfInfo = "MCUBoot_ECIES_v1"

// UnwrapKey recovers the plaintext AES payload key carried in an
// ENC_RSA2048/ENC_KW/ENC_EC256/ENC_X25519 TLV's value, using priv's
// algorithm. Both ECIES variants derive their keys with HKDF-SHA256;
// the SHA-512 derivation of ENC_X25519_SHA512 is not supported.
func UnwrapKey(priv PrivateKey, tlvValue []byte) ([]byte, error) {
	switch priv.Kind {
	case KindRsaOaep:
		if priv.Rsa == nil {
			return nil, mcuerr.New("encrypt: RSA-OAEP unwrap requires a private key")
		}
		plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv.Rsa, tlvValue, nil)
		if err != nil {
			return nil, mcuerr.Wrapf(err, "encrypt: RSA-OAEP unwrap failed")
		}
		return plain, nil

	case KindAesKw:
		if priv.Kek == nil {
			return nil, mcuerr.New("encrypt: AES-KW unwrap requires a key-encryption key")
		}
		plain, err := keywrap.Unwrap(priv.Kek, tlvValue)
		if err != nil {
			return nil, mcuerr.Wrapf(err, "encrypt: AES key-unwrap failed")
		}
		return plain, nil

	case KindEciesP256:
		return unwrapEcies(priv, tlvValue, ecdhP256)

	case KindEciesX25519:
		return unwrapEcies(priv, tlvValue, ecdhX25519)

	default:
		return nil, mcuerr.Newf("encrypt: unknown key kind %d", priv.Kind)
	}
}

// sharedSecretFunc computes the ECDH shared secret between priv and an
// ephemeral public key carried in the TLV.
type sharedSecretFunc func(priv PrivateKey, ephemeralPub []byte) ([]byte, error)

func ecdhP256(priv PrivateKey, ephemeralPub []byte) ([]byte, error) {
	if priv.Ec == nil {
		return nil, mcuerr.New("encrypt: ECIES-P256 unwrap requires a private key")
	}
	x, y := elliptic.Unmarshal(p256, ephemeralPub)
	if x == nil {
		return nil, mcuerr.New("encrypt: malformed ECIES-P256 ephemeral public key")
	}
	sx, _ := p256.ScalarMult(x, y, priv.Ec.D.Bytes())
	shared := sx.Bytes()
	// ScalarMult's result can be shorter than the 32-byte field size;
	// left-pad so the HKDF input is a fixed, well-defined width.
	if len(shared) < 32 {
		padded := make([]byte, 32)
		copy(padded[32-len(shared):], shared)
		shared = padded
	}
	return shared, nil
}

func ecdhX25519(priv PrivateKey, ephemeralPub []byte) ([]byte, error) {
	if len(ephemeralPub) != 32 {
		return nil, mcuerr.New("encrypt: malformed ECIES-X25519 ephemeral public key")
	}
	shared, err := curve25519.X25519(priv.X25519[:], ephemeralPub)
	if err != nil {
		return nil, mcuerr.Wrapf(err, "encrypt: X25519 key agreement failed")
	}
	return shared, nil
}

// unwrapEcies implements the common ECIES tail shared by the P256 and
// X25519 variants: split the TLV into (ephemeral pubkey, HMAC tag,
// wrapped key), derive AES+HMAC keys from the shared secret via
// HKDF-SHA256, verify the tag, then AES-CTR decrypt the wrapped key
// with a zero counter.
func unwrapEcies(priv PrivateKey, tlvValue []byte, ecdh sharedSecretFunc) ([]byte, error) {
	pubLen := priv.Kind.ecPubKeyLen()
	keyLen := len(tlvValue) - pubLen - ecTagLen
	if keyLen <= 0 {
		return nil, mcuerr.Newf("encrypt: ECIES TLV too short (%d bytes)", len(tlvValue))
	}

	ephemeralPub := tlvValue[:pubLen]
	tag := tlvValue[pubLen : pubLen+ecTagLen]
	wrapped := tlvValue[pubLen+ecTagLen:]

	shared, err := ecdh(priv, ephemeralPub)
	if err != nil {
		return nil, err
	}

	okm := make([]byte, 64)
	kdf := hkdf.New(sha256.New, shared, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, okm); err != nil {
		return nil, mcuerr.Wrapf(err, "encrypt: HKDF expansion failed")
	}
	aesKey, hmacKey := okm[:32], okm[32:64]

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(wrapped)
	expected := mac.Sum(nil)
	if !hmac.Equal(expected, tag) {
		return nil, mcuerr.New("encrypt: ECIES HMAC tag mismatch")
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, mcuerr.Wrapf(err, "encrypt: constructing AES cipher for ECIES unwrap")
	}
	stream := cipher.NewCTR(block, make([]byte, aes.BlockSize))
	plain := make([]byte, keyLen)
	stream.XORKeyStream(plain, wrapped)
	return plain, nil
}

// generateEphemeralX25519 is used only by tests to build a synthetic
// ECIES-X25519 TLV without depending on a real mcuboot build tool.
func generateEphemeralX25519() (priv, pub [32]byte, err error) {
	if _, err = io.ReadFull(rand.Reader, priv[:]); err != nil {
		return priv, pub, err
	}
	p, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, err
	}
	copy(pub[:], p)
	return priv, pub, nil
}
