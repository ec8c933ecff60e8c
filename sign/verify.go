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

package sign

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/asn1"
	"math/big"

	"golang.org/x/crypto/ed25519"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// Entry is one key in the boot-time key ring, together with whether a
// valid signature from it is mandatory (§4.3's must_sign_count:
// "validation fails unless every must_sign key produced a valid
// signature").
type Entry struct {
	Key      PublicKey
	MustSign bool
}

// Ring is the in-flash (or built-in) set of recognised keys, indexed
// the way the boot-time key-hash table is: a flat slice searched
// linearly, since MCU key rings are small (single digits).
type Ring struct {
	Entries []Entry
}

// LookupByHash finds the entry whose PublicKey.Hash() matches hash
// (the KEYHASH TLV case).
func (r Ring) LookupByHash(hash []byte) (int, bool) {
	for i, e := range r.Entries {
		h := e.Key.Hash()
		if bytes.Equal(h[:], hash) {
			return i, true
		}
	}
	return -1, false
}

// LookupByID finds the entry at built-in index id (the KEYID TLV
// case): a direct table index rather than a hash comparison.
func (r Ring) LookupByID(id uint8) (int, bool) {
	if int(id) >= len(r.Entries) {
		return -1, false
	}
	return int(id), true
}

// LookupByPubKey finds the entry whose encoding matches der exactly
// (the PUBKEY TLV case, comparing the embedded key byte-for-byte
// instead of by hash).
func (r Ring) LookupByPubKey(der []byte) (int, bool) {
	for i, e := range r.Entries {
		if bytes.Equal(e.Key.der, der) {
			return i, true
		}
	}
	return -1, false
}

// Verification records the outcome of checking one signature TLV
// against the key it identified.
type Verification struct {
	KeyIndex int
	Valid    bool
}

// VerifyOne checks sig (carried under a TLV of type sigTlvType) against
// the key at ring.Entries[keyIndex]. message is the SHA digest for
// every algorithm except pure-Ed25519 mode, where it is instead the raw
// header+payload+protected-TLV bytes (§4.3's "pure Ed25519"
// note); hashAlg names the hash the digest was computed with, needed
// only for RSA-PSS.
func VerifyOne(ring Ring, keyIndex int, sigTlvType uint16, sig, message []byte, hashAlg crypto.Hash) error {
	if keyIndex < 0 || keyIndex >= len(ring.Entries) {
		return mcuerr.Newf("sign: key index %d out of range", keyIndex)
	}
	key := ring.Entries[keyIndex].Key

	if want := key.Kind.sigTlvType(); want != sigTlvType {
		return mcuerr.Newf(
			"sign: signature TLV type 0x%02x does not match key algorithm (want 0x%02x)",
			sigTlvType, want)
	}

	switch key.Kind {
	case KindRsaPss2048, KindRsaPss3072:
		opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: hashAlg}
		if err := rsa.VerifyPSS(key.Rsa, hashAlg, message, sig, opts); err != nil {
			return mcuerr.Wrap(err)
		}
		return nil

	case KindEcdsaP256, KindEcdsaP384:
		var parsed struct{ R, S *big.Int }
		if _, err := asn1.Unmarshal(sig, &parsed); err != nil {
			return mcuerr.Wrapf(err, "sign: malformed ECDSA signature TLV")
		}
		if !ecdsa.Verify(key.Ec, message, parsed.R, parsed.S) {
			return mcuerr.New("sign: ECDSA signature verification failed")
		}
		return nil

	case KindEd25519:
		if !ed25519.Verify(key.Ed, message, sig) {
			return mcuerr.New("sign: Ed25519 signature verification failed")
		}
		return nil

	default:
		return mcuerr.Newf("sign: unsupported key kind %d", key.Kind)
	}
}

// Outcome summarises a full verification pass over every candidate
// (identifier TLV, signature TLV) pair the caller located, enough for
// the boot-time validator to enforce must_sign_count (§4.3).
type Outcome struct {
	Verifications []Verification
}

// Satisfied reports whether enough distinct keys produced a valid
// signature: every entry marked MustSign succeeded, and at least
// minCount keys overall succeeded (minCount of 0 means "at least one").
func (o Outcome) Satisfied(ring Ring, minCount int) bool {
	valid := make(map[int]bool)
	for _, v := range o.Verifications {
		if v.Valid {
			valid[v.KeyIndex] = true
		}
	}

	for i, e := range ring.Entries {
		if e.MustSign && !valid[i] {
			return false
		}
	}

	if minCount <= 0 {
		minCount = 1
	}
	return len(valid) >= minCount
}
