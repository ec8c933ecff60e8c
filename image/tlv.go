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

package image

import (
	"encoding/binary"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// TLV type codes. The value itself carries no trust; it is only ever
// consulted after the protected/unprotected split and the allow-list
// check below have already run.
const (
	TlvKeyHash         uint16 = 0x01
	TlvPubKey          uint16 = 0x02
	TlvSha256          uint16 = 0x10
	TlvSha384          uint16 = 0x11
	TlvSha512          uint16 = 0x12
	TlvRsa2048Pss      uint16 = 0x20
	TlvEcdsaSig        uint16 = 0x22
	TlvRsa3072Pss      uint16 = 0x23
	TlvEd25519         uint16 = 0x24
	TlvEncRsa2048      uint16 = 0x30
	TlvEncKw           uint16 = 0x31
	TlvEncEc256        uint16 = 0x32
	TlvEncX25519       uint16 = 0x33
	TlvEncX25519Sha512 uint16 = 0x34
	TlvKeyId           uint16 = 0x35
	TlvDependency      uint16 = 0x40
	TlvSecCnt          uint16 = 0x50
	TlvBootRecord      uint16 = 0x60
	TlvSigPure         uint16 = 0x70
)

const (
	// ProtInfoMagic opens the protected TLV region (hash-covered).
	ProtInfoMagic uint16 = 0x6908
	// UnprotInfoMagic opens the unprotected TLV region.
	UnprotInfoMagic uint16 = 0x6907

	infoSize = 4 // info_magic(2) + tlv_tot_len(2)
	tlvSize  = 4 // type(2) + length(2)
)

// unprotectedAllow is the fixed set of TLV types §3 permits to appear
// outside the hashed protected region: signatures, key identifiers,
// hashes, and wrapped encryption keys. Anything else found there fails
// validation rather than being silently accepted.
var unprotectedAllow = map[uint16]bool{
	TlvKeyHash:         true,
	TlvPubKey:          true,
	TlvKeyId:           true,
	TlvSha256:          true,
	TlvSha384:          true,
	TlvSha512:          true,
	TlvRsa2048Pss:      true,
	TlvEcdsaSig:        true,
	TlvRsa3072Pss:      true,
	TlvEd25519:         true,
	TlvEncRsa2048:      true,
	TlvEncKw:           true,
	TlvEncEc256:        true,
	TlvEncX25519:       true,
	TlvEncX25519Sha512: true,
	TlvSigPure:         true,
}

// Tlv is one decoded type-length-value record.
type Tlv struct {
	Type   uint16
	Data   []byte
	Offset int // absolute offset of the record's type field
}

// Reader is a TLV-region source: the flash area (or file-backed image)
// an Iterator walks. offset is relative to the start of the TLV area,
// i.e. header.HdrSize + header.ImgSize.
type Reader interface {
	ReadTlvArea(offset, length int) ([]byte, error)
}

// Iterator walks the protected then unprotected TLV regions in order,
// the same two-pass shape as the original bootutil_tlv_iter but
// expressed as a pull cursor instead of caller-supplied callback state.
type Iterator struct {
	r         Reader
	base      int // offset of TLV area start, relative to slot start
	slotSkip  int // swap-using-offset metadata-sector adjustment
	pos       int // cursor, relative to base
	protEnd   int // end of protected region, relative to base (0 if none)
	tlvEnd    int // end of unprotected region, relative to base
	inProt    bool
	typeFilter uint16 // 0 means "no filter"
	protOnly   bool
}

// NewIterator begins iteration over the TLV area that follows a
// header+body of the given sizes. slotSkip offsets every read by the
// secondary slot's metadata-sector size under swap-using-offset (§3);
// pass 0 when that mode is not in effect.
func NewIterator(r Reader, hdrSize, imgSize, protectTlvSize, slotSkip int, typeFilter uint16, protOnly bool) (*Iterator, error) {
	it := &Iterator{
		r:          r,
		base:       hdrSize + imgSize,
		slotSkip:   slotSkip,
		typeFilter: typeFilter,
		protOnly:   protOnly,
	}

	if protectTlvSize > 0 {
		raw, err := it.read(0, infoSize)
		if err != nil {
			return nil, err
		}
		magic := binary.LittleEndian.Uint16(raw[0:2])
		length := binary.LittleEndian.Uint16(raw[2:4])
		if magic != ProtInfoMagic {
			return nil, mcuerr.Newf(
				"tlv iterator: bad protected-region magic 0x%04x", magic)
		}
		if int(length) != protectTlvSize {
			return nil, mcuerr.Newf(
				"tlv iterator: protected region declares length %d, header says %d",
				length, protectTlvSize)
		}
		it.protEnd = protectTlvSize
		it.pos = infoSize
		it.inProt = true
	} else {
		it.pos = 0
		it.inProt = false
	}

	unprotOff := it.protEnd
	raw, err := it.read(unprotOff, infoSize)
	if err != nil {
		return nil, err
	}
	magic := binary.LittleEndian.Uint16(raw[0:2])
	length := binary.LittleEndian.Uint16(raw[2:4])
	if magic != UnprotInfoMagic {
		return nil, mcuerr.Newf(
			"tlv iterator: bad unprotected-region magic 0x%04x", magic)
	}
	it.tlvEnd = unprotOff + int(length)
	if !it.inProt {
		it.pos = unprotOff + infoSize
	}

	return it, nil
}

func (it *Iterator) read(offset, length int) ([]byte, error) {
	return it.r.ReadTlvArea(it.slotSkip+offset, length)
}

// Next returns the next matching record, or (nil, nil) at end of
// iteration. A non-nil error means the TLV stream is structurally
// malformed and the image must be rejected outright.
func (it *Iterator) Next() (*Tlv, error) {
	for {
		if it.inProt && it.pos >= it.protEnd {
			it.inProt = false
			it.pos = it.protEnd + infoSize
			if it.protOnly {
				return nil, nil
			}
			continue
		}
		if !it.inProt && it.pos >= it.tlvEnd {
			return nil, nil
		}

		hdr, err := it.read(it.pos, tlvSize)
		if err != nil {
			return nil, err
		}
		typ := binary.LittleEndian.Uint16(hdr[0:2])
		length := binary.LittleEndian.Uint16(hdr[2:4])

		recEnd := it.pos + tlvSize + int(length)
		if recEnd > it.tlvEnd {
			return nil, mcuerr.Newf(
				"tlv iterator: record at offset %d extends past tlv_end", it.pos)
		}

		if !it.inProt && !unprotectedAllow[typ] {
			return nil, mcuerr.Newf(
				"tlv iterator: type 0x%02x not permitted in unprotected region", typ)
		}

		data, err := it.read(it.pos+tlvSize, int(length))
		if err != nil {
			return nil, err
		}

		rec := &Tlv{Type: typ, Data: data, Offset: it.pos}
		it.pos = recEnd

		if it.typeFilter != 0 && typ != it.typeFilter {
			continue
		}
		return rec, nil
	}
}

// EncodeTlvArea serialises a protected and an unprotected TLV list back
// into the two-region wire form, writing the info records itself.
func EncodeTlvArea(protected, unprotected []Tlv) []byte {
	var buf []byte

	if len(protected) > 0 {
		protLen := infoSize
		for _, t := range protected {
			protLen += tlvSize + len(t.Data)
		}
		info := make([]byte, infoSize)
		binary.LittleEndian.PutUint16(info[0:2], ProtInfoMagic)
		binary.LittleEndian.PutUint16(info[2:4], uint16(protLen))
		buf = append(buf, info...)
		for _, t := range protected {
			buf = append(buf, encodeTlv(t)...)
		}
	}

	unprotLen := infoSize
	for _, t := range unprotected {
		unprotLen += tlvSize + len(t.Data)
	}
	info := make([]byte, infoSize)
	binary.LittleEndian.PutUint16(info[0:2], UnprotInfoMagic)
	binary.LittleEndian.PutUint16(info[2:4], uint16(unprotLen))
	buf = append(buf, info...)
	for _, t := range unprotected {
		buf = append(buf, encodeTlv(t)...)
	}

	return buf
}

func encodeTlv(t Tlv) []byte {
	out := make([]byte, tlvSize+len(t.Data))
	binary.LittleEndian.PutUint16(out[0:2], t.Type)
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(t.Data)))
	copy(out[tlvSize:], t.Data)
	return out
}
