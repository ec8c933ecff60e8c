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

package bootutil

import (
	"bytes"
	"crypto"
	"encoding/binary"

	"github.com/mcu-tools/mcuboot-sub001/fih"
	"github.com/mcu-tools/mcuboot-sub001/flash"
	"github.com/mcu-tools/mcuboot-sub001/hashimg"
	"github.com/mcu-tools/mcuboot-sub001/image"
	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
	"github.com/mcu-tools/mcuboot-sub001/sign"
)

// tlvAreaReader adapts a flash.Area (whose Read takes an
// absolute-from-area-start offset) to image.Reader (whose
// ReadTlvArea takes an offset relative to the start of the TLV area).
type tlvAreaReader struct {
	area   flash.Area
	tlvOff int // absolute offset of the TLV area's start within the area
}

func (r tlvAreaReader) ReadTlvArea(offset, length int) ([]byte, error) {
	return r.area.Read(r.tlvOff+offset, length)
}

// ValidateParams bundles the inputs the image validator (§4.5) needs
// beyond the area and header, so Validate's signature stays
// stable as new knobs are added.
type ValidateParams struct {
	Area           flash.Area
	Header         image.Header
	ProtectTlvSize int
	SlotSkip       int // swap-using-offset metadata-sector adjustment

	HashKind hashimg.Kind
	ChunkSize int
	Decryptor hashimg.Decryptor // nil unless the slot is encrypted

	Ring         sign.Ring
	MinSignCount int

	// SecurityCounterMin is the hardware-stored anti-rollback floor;
	// the image's SEC_CNT TLV must be >= this value. 0 disables the
	// check (no anti-rollback counter configured).
	SecurityCounterMin uint32

	// RequirePureSig, when set, fails validation if no SIG_PURE marker
	// TLV is present (the pure-signature mode's marker required but
	// absent case).
	RequirePureSig bool
}

// Validate orchestrates the TLV iterator, hash engine, and signature
// verifier (§4.1-§4.4) into one pass/fail decision. It returns
// a non-nil error for unexpected I/O failures against the flash
// area and for unusable parameters (a non-positive ChunkSize or an
// unknown HashKind); every content-level rejection (bad hash, bad signature,
// disallowed TLV, stale counter) is expressed purely through the
// returned fih.VerifyOutcome failing IsSuccess, per §9's
// fault-injection-hardening note.
func Validate(p ValidateParams) (fih.VerifyOutcome, error) {
	hdrSize := int(p.Header.HdrSize)
	imgSize := int(p.Header.ImgSize)
	tlvOff := hdrSize + imgSize
	reader := tlvAreaReader{area: p.Area, tlvOff: tlvOff}

	digest, err := hashimg.Digest(p.HashKind, p.Area, hdrSize, imgSize,
		p.ProtectTlvSize, p.ChunkSize, p.Decryptor)
	if err != nil {
		return fih.Failure(), err
	}

	shaTlvType, err := shaTlvTypeFor(p.HashKind)
	if err != nil {
		return fih.Failure(), err
	}

	var (
		hashOK      bool
		pureSigSeen bool
		secCntOK    = p.SecurityCounterMin == 0
		outcome     sign.Outcome
	)

	it, err := image.NewIterator(reader, hdrSize, imgSize,
		p.ProtectTlvSize, p.SlotSkip, 0, false)
	if err != nil {
		return fih.Failure(), nil
	}

	type sigCandidate struct {
		keyIndex   int
		sigTlvType uint16
		sig        []byte
	}
	var sigCandidates []sigCandidate
	pendingKeyIndex := -1

	for {
		tlv, err := it.Next()
		if err != nil {
			return fih.Failure(), nil
		}
		if tlv == nil {
			break
		}

		switch tlv.Type {
		case shaTlvType:
			if bytes.Equal(tlv.Data, digest) {
				hashOK = true
			}

		case image.TlvKeyHash:
			if idx, ok := p.Ring.LookupByHash(tlv.Data); ok {
				pendingKeyIndex = idx
			}

		case image.TlvKeyId:
			if len(tlv.Data) == 1 {
				if idx, ok := p.Ring.LookupByID(tlv.Data[0]); ok {
					pendingKeyIndex = idx
				}
			}

		case image.TlvPubKey:
			if idx, ok := p.Ring.LookupByPubKey(tlv.Data); ok {
				pendingKeyIndex = idx
			}

		case image.TlvSigPure:
			pureSigSeen = true

		case image.TlvSecCnt:
			if len(tlv.Data) == 4 {
				if binary.LittleEndian.Uint32(tlv.Data) >= p.SecurityCounterMin {
					secCntOK = true
				}
			}

		case image.TlvRsa2048Pss, image.TlvRsa3072Pss, image.TlvEcdsaSig, image.TlvEd25519:
			if pendingKeyIndex >= 0 {
				sigCandidates = append(sigCandidates, sigCandidate{
					keyIndex: pendingKeyIndex, sigTlvType: tlv.Type, sig: tlv.Data,
				})
				pendingKeyIndex = -1
			}
		}
	}

	message := digest
	if p.RequirePureSig {
		if !pureSigSeen {
			return fih.Failure(), nil
		}
		whole, err := p.Area.Read(0, hdrSize+imgSize+p.ProtectTlvSize)
		if err != nil {
			return fih.Failure(), err
		}
		message = whole
		hashOK = true // pure mode carries no separate SHA TLV to match
	}

	for _, c := range sigCandidates {
		hashAlg := hashAlgFor(p.HashKind)
		valid := sign.VerifyOne(p.Ring, c.keyIndex, c.sigTlvType, c.sig, message, hashAlg) == nil
		outcome.Verifications = append(outcome.Verifications, sign.Verification{
			KeyIndex: c.keyIndex, Valid: valid,
		})
	}

	if !hashOK || !secCntOK {
		return fih.Failure(), nil
	}
	if !outcome.Satisfied(p.Ring, p.MinSignCount) {
		return fih.Failure(), nil
	}

	return fih.Success(), nil
}

func shaTlvTypeFor(k hashimg.Kind) (uint16, error) {
	switch k {
	case hashimg.Sha256:
		return image.TlvSha256, nil
	case hashimg.Sha384:
		return image.TlvSha384, nil
	case hashimg.Sha512:
		return image.TlvSha512, nil
	default:
		return 0, mcuerr.Newf("bootutil: unknown hash kind %d", k)
	}
}

func hashAlgFor(k hashimg.Kind) crypto.Hash {
	switch k {
	case hashimg.Sha256:
		return crypto.SHA256
	case hashimg.Sha384:
		return crypto.SHA384
	case hashimg.Sha512:
		return crypto.SHA512
	default:
		return 0
	}
}

