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

// MagicSize is the width of the trailer's fixed magic literal
// (BOOT_MAGIC_SZ in the original).
const MagicSize = 16

// Flag is a tri-state trailer byte: unset (erased), set, or bad (any
// other non-erased value, which the original treats as a corrupted
// flag rather than trusting it).
type Flag uint8

const (
	FlagUnset Flag = iota
	FlagSet
	FlagBad
)

// SwapType is the decoded swap-info nibble.
type SwapType uint8

const (
	SwapTypeNone SwapType = iota
	SwapTypeTest
	SwapTypePerm
	SwapTypeRevert
	// SwapTypePanic is not a wire value; it is returned by
	// DecodeSwapTypeRaw when a trailer's swap_type nibble holds a value outside
	// {NONE, TEST, PERM, REVERT}, e.g. a torn write mid-resume.
	SwapTypePanic
)

// magic8 and magic16 are the two canonical encodings of the trailer
// magic, selected by the platform's write-block alignment (§3:
// "two canonical encodings depending on whether the platform's max
// write alignment is 8 bytes or larger").
var magic16 = [MagicSize]byte{
	0x77, 0xc2, 0x95, 0xf3,
	0x60, 0xd2, 0xef, 0x7f,
	0x35, 0x52, 0x50, 0x0f,
	0x2c, 0xb6, 0x79, 0x80,
}

// magic8 embeds the write-block alignment in its first two bytes, so a
// reader can recover it from the trailer alone; the remaining 14 bytes
// are the fixed literal.
var magic8Tail = [14]byte{
	0x2d, 0xe1, 0x5d, 0x29,
	0x41, 0x0b, 0x8d, 0x77,
	0x67, 0x9c, 0x11, 0x0f,
	0x1f, 0x8a,
}

// CanonicalMagic returns the 16-byte trailer magic for the given
// maximum write-block alignment.
func CanonicalMagic(writeBlockAlign int) [MagicSize]byte {
	if writeBlockAlign >= 8 {
		return magic16
	}
	var m [MagicSize]byte
	binary.LittleEndian.PutUint16(m[0:2], uint16(writeBlockAlign))
	copy(m[2:16], magic8Tail[:])
	return m
}

// DecodeMagic classifies a 16-byte trailer field as good, bad, or
// unset, recognising either canonical encoding regardless of the
// caller's own alignment (a resume path may need to read a trailer
// written under a different-aligned build).
func DecodeMagic(raw []byte, erasedVal byte) Flag {
	if len(raw) != MagicSize {
		return FlagBad
	}
	if allEqual(raw, erasedVal) {
		return FlagUnset
	}

	var buf [MagicSize]byte
	copy(buf[:], raw)

	if buf == magic16 {
		return FlagSet
	}

	var tail [14]byte
	copy(tail[:], buf[2:])
	if tail == magic8Tail {
		return FlagSet
	}
	return FlagBad
}

func allEqual(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}

func decodeFlag(raw byte, erasedVal byte) Flag {
	if raw == erasedVal {
		return FlagUnset
	}
	if raw == 1 {
		return FlagSet
	}
	return FlagBad
}

// SwapState is the decoded trailer of one flash area: §3's
// "slot swap state".
type SwapState struct {
	Magic     Flag
	SwapType  SwapType
	ImageNum  uint8
	CopyDone  Flag
	ImageOk   Flag
	SwapSize  uint32
	HasSwapSize bool
}

// TrailerLayout computes the byte offsets of each trailer field within
// an area of the given size, aligned down to writeBlock as §3
// requires. NewTrailerLayout's numStatusEntries and hasEncKeys size the leading per-sector
// status table and the optional encryption key slots; pass 0/false
// when the build carries no encryption support.
type TrailerLayout struct {
	WriteBlock int
	StatusOff  int
	EncKey0Off int
	EncKey1Off int
	SwapSizeOff int
	SwapInfoOff int
	CopyDoneOff int
	ImageOkOff  int
	MagicOff    int
	End         int
}

// NewTrailerLayout lays the trailer out backwards from the end of the
// area, matching bootutil_priv.h's diagram: magic, then image_ok, copy
// done, swap_info, swap_size, optional enc keys, then the per-sector
// status table.
func NewTrailerLayout(areaSize, writeBlock int, numStatusEntries int, hasEncKeys bool, encKeySize int) (TrailerLayout, error) {
	if writeBlock <= 0 {
		return TrailerLayout{}, mcuerr.New("trailer layout: write block must be positive")
	}

	pad := func(n int) int {
		if n%writeBlock == 0 {
			return n
		}
		return (n/writeBlock + 1) * writeBlock
	}

	end := areaSize
	magicOff := end - MagicSize
	imageOkOff := magicOff - pad(1)
	copyDoneOff := imageOkOff - pad(1)
	swapInfoOff := copyDoneOff - pad(1)
	swapSizeOff := swapInfoOff - pad(4)

	encKey1Off := swapSizeOff
	encKey0Off := swapSizeOff
	if hasEncKeys {
		encKey1Off = swapSizeOff - pad(encKeySize)
		encKey0Off = encKey1Off - pad(encKeySize)
	}

	statusOff := encKey0Off - numStatusEntries*3*writeBlock

	if statusOff < 0 {
		return TrailerLayout{}, mcuerr.Newf(
			"trailer layout: area of size %d too small for %d status entries",
			areaSize, numStatusEntries)
	}

	return TrailerLayout{
		WriteBlock:  writeBlock,
		StatusOff:   statusOff,
		EncKey0Off:  encKey0Off,
		EncKey1Off:  encKey1Off,
		SwapSizeOff: swapSizeOff,
		SwapInfoOff: swapInfoOff,
		CopyDoneOff: copyDoneOff,
		ImageOkOff:  imageOkOff,
		MagicOff:    magicOff,
		End:         end,
	}, nil
}

// trailerReader is the minimal read surface DecodeSwapState needs; the
// flash.Area interface satisfies it directly.
type trailerReader interface {
	Read(offset, length int) ([]byte, error)
}

// DecodeSwapState reads and normalises every trailer field, mapping
// erased bytes to "unset" uniformly (§4.6).
func DecodeSwapState(r trailerReader, layout TrailerLayout, erasedVal byte) (SwapState, error) {
	var st SwapState

	magicRaw, err := r.Read(layout.MagicOff, MagicSize)
	if err != nil {
		return st, err
	}
	st.Magic = DecodeMagic(magicRaw, erasedVal)

	swapInfoRaw, err := r.Read(layout.SwapInfoOff, 1)
	if err != nil {
		return st, err
	}
	swapInfo := swapInfoRaw[0]
	if swapInfo == erasedVal {
		st.SwapType = SwapTypeNone
		st.ImageNum = 0
	} else {
		st.SwapType = SwapType(swapInfo & 0x0f)
		st.ImageNum = swapInfo >> 4
		if st.SwapType > SwapTypeRevert {
			st.SwapType = SwapTypeNone
			st.ImageNum = 0
		}
	}

	copyDoneRaw, err := r.Read(layout.CopyDoneOff, 1)
	if err != nil {
		return st, err
	}
	st.CopyDone = decodeFlag(copyDoneRaw[0], erasedVal)

	imageOkRaw, err := r.Read(layout.ImageOkOff, 1)
	if err != nil {
		return st, err
	}
	st.ImageOk = decodeFlag(imageOkRaw[0], erasedVal)

	swapSizeRaw, err := r.Read(layout.SwapSizeOff, 4)
	if err != nil {
		return st, err
	}
	if allEqual(swapSizeRaw, erasedVal) {
		st.HasSwapSize = false
	} else {
		st.SwapSize = binary.LittleEndian.Uint32(swapSizeRaw)
		st.HasSwapSize = true
	}

	return st, nil
}

// EncodeSwapInfo packs a swap type and image index into the single
// trailer byte the original calls swap_info.
func EncodeSwapInfo(t SwapType, imageNum uint8) byte {
	return byte(t&0x0f) | (imageNum << 4)
}

// DecodeSwapTypeRaw reads the swap_info byte without DecodeSwapState's
// normalisation, for the one caller (the swap engine's resume check,
// §4.8) that must distinguish "no swap recorded" from "a
// corrupted swap_type mid-resume", which it treats as SwapTypePanic
// rather than silently folding to SwapTypeNone.
func DecodeSwapTypeRaw(r trailerReader, layout TrailerLayout, erasedVal byte) (SwapType, uint8, error) {
	raw, err := r.Read(layout.SwapInfoOff, 1)
	if err != nil {
		return SwapTypeNone, 0, err
	}
	if raw[0] == erasedVal {
		return SwapTypeNone, 0, nil
	}
	t := SwapType(raw[0] & 0x0f)
	imageNum := raw[0] >> 4
	if t > SwapTypeRevert {
		return SwapTypePanic, imageNum, nil
	}
	return t, imageNum, nil
}

// EncodeFlag is decodeFlag's inverse: the single byte a swap engine
// writes for FlagSet. FlagUnset is never written explicitly (it is the
// erased-value pattern); writing FlagBad makes no sense and panics.
func EncodeFlag(f Flag) byte {
	switch f {
	case FlagSet:
		return 1
	default:
		panic("image: EncodeFlag only supports FlagSet")
	}
}

// trailerWriter is the minimal write surface the swap engine needs to
// finalise a trailer; flash.Area satisfies it directly.
type trailerWriter interface {
	Write(offset int, data []byte) error
}

// padField builds a write-block-sized buffer for a logical field
// narrower than one write block, so the write itself stays aligned:
// value occupies the leading bytes, erasedVal fills the rest (every
// padded trailer field is written exactly once against erased flash).
func padField(layout TrailerLayout, erasedVal byte, value []byte) []byte {
	buf := make([]byte, layout.WriteBlock)
	for i := range buf {
		buf[i] = erasedVal
	}
	copy(buf, value)
	return buf
}

// WriteMagic writes the canonical trailer magic for the layout's
// write-block alignment, marking the slot GOOD.
func WriteMagic(w trailerWriter, layout TrailerLayout) error {
	magic := CanonicalMagic(layout.WriteBlock)
	return w.Write(layout.MagicOff, magic[:])
}

// WriteSwapInfo writes the packed swap_type/image_num byte.
func WriteSwapInfo(w trailerWriter, layout TrailerLayout, erasedVal byte, t SwapType, imageNum uint8) error {
	return w.Write(layout.SwapInfoOff, padField(layout, erasedVal, []byte{EncodeSwapInfo(t, imageNum)}))
}

// WriteCopyDone writes copy_done := SET.
func WriteCopyDone(w trailerWriter, layout TrailerLayout, erasedVal byte) error {
	return w.Write(layout.CopyDoneOff, padField(layout, erasedVal, []byte{EncodeFlag(FlagSet)}))
}

// WriteImageOk writes image_ok := SET.
func WriteImageOk(w trailerWriter, layout TrailerLayout, erasedVal byte) error {
	return w.Write(layout.ImageOkOff, padField(layout, erasedVal, []byte{EncodeFlag(FlagSet)}))
}

// WriteSwapSize records the swap_size field (§4.8's
// post-swap-finalisation step).
func WriteSwapSize(w trailerWriter, layout TrailerLayout, erasedVal byte, size uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, size)
	sizeField := padField(layout, erasedVal, buf)
	if len(sizeField) < 4 {
		sizeField = buf
	}
	return w.Write(layout.SwapSizeOff, sizeField)
}
