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

// Package image decodes and encodes the on-flash image container: the
// fixed header, the two TLV regions that follow the payload, and the
// slot trailer at the high end of the slot. It borrows its reader and
// encode/decode shape from the ancestor tooling's artifact/image
// package but targets the richer 16-bit-type TLV format and the real
// swap-status trailer layout rather than the old signed-build format.
package image

import (
	"encoding/binary"
	"fmt"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

const (
	// HeaderMagic is the canonical little-endian magic of a populated
	// image header.
	HeaderMagic uint32 = 0x96f3b83c

	HeaderSize = 32
)

// Flag bits carried in Header.Flags. At most one Encrypted* bit and at
// most one Compressed* bit may be set (spec invariant).
const (
	FlagPIC               uint32 = 0x00000001
	FlagEncryptedAES128    uint32 = 0x00000004
	FlagNonBootable        uint32 = 0x00000010
	FlagEncryptedAES256    uint32 = 0x00000020
	FlagCompressedLZMA1    uint32 = 0x00000040
	FlagCompressedLZMA2    uint32 = 0x00000080
	FlagEncryptedX25519Sha uint32 = 0x00000100
	FlagRamLoad            uint32 = 0x00000200
)

var encryptedFlags = []uint32{
	FlagEncryptedAES128, FlagEncryptedAES256, FlagEncryptedX25519Sha,
}

var compressedFlags = []uint32{
	FlagCompressedLZMA1, FlagCompressedLZMA2,
}

// Version is the four-component semantic version embedded in a header.
type Version struct {
	Major    uint8
	Minor    uint8
	Revision uint16
	BuildNum uint32
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Revision, v.BuildNum)
}

// Less reports whether v sorts strictly before other, comparing fields
// in major/minor/revision/build order.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	if v.Revision != other.Revision {
		return v.Revision < other.Revision
	}
	return v.BuildNum < other.BuildNum
}

// Header is the fixed 32-byte structure at offset 0 of every slot,
// binary-compatible with the wire layout (all fields little-endian).
type Header struct {
	Magic            uint32
	LoadAddr         uint32
	HdrSize          uint16
	ProtectTlvSize   uint16
	ImgSize          uint32
	Flags            uint32
	Vers             Version
	pad1             uint32
}

// IsErased reports whether raw holds the area's erased-value pattern
// repeated across all HeaderSize bytes, the "no image present" case.
func IsErased(raw []byte, erasedVal byte) bool {
	for _, b := range raw {
		if b != erasedVal {
			return false
		}
	}
	return true
}

// DecodeHeader parses the 32-byte little-endian header at the start of
// raw. An erased header fails the magic check like any other bad
// magic; callers distinguish "absent" from "malformed" using IsErased
// first, per §3's header-magic invariant.
func DecodeHeader(raw []byte) (Header, error) {
	var h Header
	if len(raw) < HeaderSize {
		return h, mcuerr.Newf("image header: need %d bytes, got %d", HeaderSize, len(raw))
	}

	le := binary.LittleEndian

	h.Magic = le.Uint32(raw[0:4])
	h.LoadAddr = le.Uint32(raw[4:8])
	h.HdrSize = le.Uint16(raw[8:10])
	h.ProtectTlvSize = le.Uint16(raw[10:12])
	h.ImgSize = le.Uint32(raw[12:16])
	h.Flags = le.Uint32(raw[16:20])
	h.Vers = Version{
		Major:    raw[20],
		Minor:    raw[21],
		Revision: le.Uint16(raw[22:24]),
		BuildNum: le.Uint32(raw[24:28]),
	}
	h.pad1 = le.Uint32(raw[28:32])

	if h.Magic != HeaderMagic {
		return h, mcuerr.Newf(
			"image header: bad magic 0x%08x, want 0x%08x", h.Magic, HeaderMagic)
	}
	return h, nil
}

// Encode serialises h back to its 32-byte wire form.
func (h Header) Encode() []byte {
	out := make([]byte, HeaderSize)
	le := binary.LittleEndian

	le.PutUint32(out[0:4], h.Magic)
	le.PutUint32(out[4:8], h.LoadAddr)
	le.PutUint16(out[8:10], h.HdrSize)
	le.PutUint16(out[10:12], h.ProtectTlvSize)
	le.PutUint32(out[12:16], h.ImgSize)
	le.PutUint32(out[16:20], h.Flags)
	out[20] = h.Vers.Major
	out[21] = h.Vers.Minor
	le.PutUint16(out[22:24], h.Vers.Revision)
	le.PutUint32(out[24:28], h.Vers.BuildNum)
	le.PutUint32(out[28:32], h.pad1)
	return out
}

// Validate checks the structural invariants §3 places on a
// header given the area it was read from: the header+body+protected
// TLV region must not exceed slotSize (or slotSize-magicSize
// when validatePrimaryOnce reserves the trailer magic as a validation
// cache, §9 Open Question 2), and at most one flag from each of
// the Encrypted*/Compressed* families may be set.
func (h Header) Validate(slotSize int, validatePrimaryOnce bool, magicReserve int) error {
	limit := slotSize
	if validatePrimaryOnce {
		limit = slotSize - magicReserve
	}

	total := int(h.HdrSize) + int(h.ImgSize) + int(h.ProtectTlvSize)
	if total > limit {
		return mcuerr.Newf(
			"image header: header+body+protected-tlv size %d exceeds slot bound %d",
			total, limit)
	}

	if countSet(h.Flags, encryptedFlags) > 1 {
		return mcuerr.New("image header: more than one ENCRYPTED_* flag set")
	}
	if countSet(h.Flags, compressedFlags) > 1 {
		return mcuerr.New("image header: more than one COMPRESSED_* flag set")
	}

	return nil
}

func countSet(flags uint32, family []uint32) int {
	n := 0
	for _, f := range family {
		if flags&f != 0 {
			n++
		}
	}
	return n
}
