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

package bootinfo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// The shared-data region (§4.10 step 7) is a small TLV blob the
// boot loader leaves behind for the image it just booted to read at
// startup, describing how the boot happened. It has the same shape as
// the manufacturing meta region (header, TLVs, no per-TLV alignment
// padding), except the length-prefixing header comes first instead of
// a magic-bearing footer coming last: the running image reads it
// forward from a fixed base address rather than scanning backward from
// the end of a flash area.
//
//  0                   1                   2                   3
//  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |                  Magic (0xb00710ad)                          |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |                  Total length                                |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |          Entry type (major<<8|minor) |      Entry length     |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |                   Entry data ("Entry length" bytes)          ~
// ~                                                               ~
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// ... (one entry per field below, repeated per image where noted)

// Magic identifies the start of a shared-data region. It has no
// external meaning beyond this module; it only needs to be improbable
// enough that a reader can tell the region apart from erased flash.
const Magic uint32 = 0xb00710ad

const headerSize = 8 // Magic (4) + TotalLen (4)

// MajorType is the high-order half of an entry's type field, grouping
// related entries the way the boot loader's TLV_MAJOR_* constants do.
type MajorType uint8

const (
	MajorBootloaderInfo MajorType = 0x01 // mode, signing, recovery, slot, version, app size
)

// MinorType enumerates BLINFO entries within MajorBootloaderInfo. The
// per-image fields (running slot, max application size) reserve a
// 16-wide block each so up to 16 images can be described without their
// ranges colliding.
type MinorType uint8

const (
	MinorMode              MinorType = 0x00
	MinorSignatureType     MinorType = 0x01
	MinorRecoveryType      MinorType = 0x02
	MinorBootloaderVersion MinorType = 0x03

	minorRunningSlotBase        MinorType = 0x10
	minorMaxApplicationSizeBase MinorType = 0x20
	maxImages                              = 16
)

// Mode identifies the upgrade strategy the boot loader was built with.
type Mode uint8

const (
	ModeSingleSlot Mode = iota
	ModeSwapUsingScratch
	ModeOverwriteOnly
	ModeSwapUsingMove
	ModeSwapUsingOffset
	ModeDirectXip
	ModeDirectXipWithRevert
	ModeRamLoad
)

// SignatureType identifies the signing algorithm the boot loader's key
// ring was built with.
type SignatureType uint8

const (
	SignatureNone SignatureType = iota
	SignatureRsa
	SignatureEcdsaP256
	SignatureEd25519
)

// RecoveryType identifies which recovery front-end, if any, the boot
// loader exposes when no valid image is found.
type RecoveryType uint8

const (
	RecoveryNone RecoveryType = iota
	RecoverySerial
)

// Version mirrors image.Version's four fields, duplicated here rather
// than imported so bootinfo stays decodable on its own without pulling
// in the image package's TLV/header machinery.
type Version struct {
	Major    uint8
	Minor    uint8
	Revision uint16
	BuildNum uint32
}

func parseVersion(s string) (Version, error) {
	var v Version

	parts := strings.Split(s, ".")
	if len(parts) == 0 || len(parts) > 4 {
		return v, mcuerr.Newf("bootinfo: invalid version string %q", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return v, mcuerr.Wrapf(err, "bootinfo: invalid version string %q", s)
	}
	v.Major = uint8(major)

	if len(parts) > 1 {
		minor, err := strconv.ParseUint(parts[1], 10, 8)
		if err != nil {
			return v, mcuerr.Wrapf(err, "bootinfo: invalid version string %q", s)
		}
		v.Minor = uint8(minor)
	}
	if len(parts) > 2 {
		rev, err := strconv.ParseUint(parts[2], 10, 16)
		if err != nil {
			return v, mcuerr.Wrapf(err, "bootinfo: invalid version string %q", s)
		}
		v.Revision = uint16(rev)
	}
	if len(parts) > 3 {
		build, err := strconv.ParseUint(parts[3], 10, 32)
		if err != nil {
			return v, mcuerr.Wrapf(err, "bootinfo: invalid version string %q", s)
		}
		v.BuildNum = uint32(build)
	}

	return v, nil
}

func formatVersion(v Version) string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Revision, v.BuildNum)
}

// ImageEntry carries the per-image facts the shared-data record keeps:
// which slot ended up running, and (if the build computed one) the
// largest application size that slot can hold.
type ImageEntry struct {
	ImageIndex int
	RunningOff int // kept for bootutil.BootResult callers; not itself serialised
	Version    string

	RunningSlot     uint8
	MaxAppSize      uint32
	MaxAppSizeKnown bool
}

// SharedData is the decoded form of the shared-data region: everything
// BootGo (§4.10) learned about how this boot went, for the
// image it handed control to.
type SharedData struct {
	Mode              Mode
	SignatureType     SignatureType
	Recovery          RecoveryType
	BootloaderVersion string
	Images            []ImageEntry
}

func putEntry(buf *bytes.Buffer, major MajorType, minor MinorType, data []byte) {
	typ := uint16(major)<<8 | uint16(minor)
	binary.Write(buf, binary.LittleEndian, typ)
	binary.Write(buf, binary.LittleEndian, uint16(len(data)))
	buf.Write(data)
}

// Marshal encodes d into the wire form the running image expects to
// find at its shared-data base address.
func Marshal(d SharedData) ([]byte, error) {
	body := &bytes.Buffer{}

	putEntry(body, MajorBootloaderInfo, MinorMode, []byte{byte(d.Mode)})
	putEntry(body, MajorBootloaderInfo, MinorSignatureType, []byte{byte(d.SignatureType)})
	putEntry(body, MajorBootloaderInfo, MinorRecoveryType, []byte{byte(d.Recovery)})

	if d.BootloaderVersion != "" {
		v, err := parseVersion(d.BootloaderVersion)
		if err != nil {
			return nil, err
		}
		vb := &bytes.Buffer{}
		binary.Write(vb, binary.LittleEndian, v)
		putEntry(body, MajorBootloaderInfo, MinorBootloaderVersion, vb.Bytes())
	}

	for _, img := range d.Images {
		if img.ImageIndex < 0 || img.ImageIndex >= maxImages {
			return nil, mcuerr.Newf("bootinfo: image index %d out of range [0,%d)", img.ImageIndex, maxImages)
		}

		putEntry(body, MajorBootloaderInfo, minorRunningSlotBase+MinorType(img.ImageIndex),
			[]byte{img.RunningSlot})

		if img.MaxAppSizeKnown {
			sb := make([]byte, 4)
			binary.LittleEndian.PutUint32(sb, img.MaxAppSize)
			putEntry(body, MajorBootloaderInfo, minorMaxApplicationSizeBase+MinorType(img.ImageIndex), sb)
		}
	}

	out := &bytes.Buffer{}
	binary.Write(out, binary.LittleEndian, Magic)
	binary.Write(out, binary.LittleEndian, uint32(headerSize+body.Len()))
	out.Write(body.Bytes())

	return out.Bytes(), nil
}

// Parse decodes a shared-data region previously produced by Marshal.
// It tolerates unknown entry types (a newer boot loader's entries read
// by an older parser) by skipping them.
func Parse(bin []byte) (SharedData, error) {
	if len(bin) < headerSize {
		return SharedData{}, mcuerr.Newf(
			"bootinfo: region too small for header: have %d, need %d", len(bin), headerSize)
	}

	r := bytes.NewReader(bin)
	var magic, totLen uint32
	binary.Read(r, binary.LittleEndian, &magic)
	binary.Read(r, binary.LittleEndian, &totLen)

	if magic != Magic {
		return SharedData{}, mcuerr.Newf(
			"bootinfo: bad magic: exp 0x%08x, got 0x%08x", Magic, magic)
	}
	if int(totLen) > len(bin) {
		return SharedData{}, mcuerr.Newf(
			"bootinfo: region truncated: header claims %d bytes, have %d", totLen, len(bin))
	}

	images := map[int]*ImageEntry{}
	imageEntry := func(idx int) *ImageEntry {
		e, ok := images[idx]
		if !ok {
			e = &ImageEntry{ImageIndex: idx}
			images[idx] = e
		}
		return e
	}

	var d SharedData

	end := int(totLen)
	for r.Len() > 0 && len(bin)-r.Len() < end {
		var typ, length uint16
		if err := binary.Read(r, binary.LittleEndian, &typ); err != nil {
			return SharedData{}, mcuerr.Wrapf(err, "bootinfo: reading entry type")
		}
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return SharedData{}, mcuerr.Wrapf(err, "bootinfo: reading entry length")
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return SharedData{}, mcuerr.Wrapf(err, "bootinfo: reading entry data")
		}

		major := MajorType(typ >> 8)
		minor := MinorType(typ & 0xff)
		if major != MajorBootloaderInfo {
			continue
		}

		switch {
		case minor == MinorMode && len(data) == 1:
			d.Mode = Mode(data[0])
		case minor == MinorSignatureType && len(data) == 1:
			d.SignatureType = SignatureType(data[0])
		case minor == MinorRecoveryType && len(data) == 1:
			d.Recovery = RecoveryType(data[0])
		case minor == MinorBootloaderVersion && len(data) == 8:
			var v Version
			binary.Read(bytes.NewReader(data), binary.LittleEndian, &v)
			d.BootloaderVersion = formatVersion(v)
		case minor >= minorRunningSlotBase && minor < minorRunningSlotBase+maxImages && len(data) == 1:
			idx := int(minor - minorRunningSlotBase)
			imageEntry(idx).RunningSlot = data[0]
		case minor >= minorMaxApplicationSizeBase && minor < minorMaxApplicationSizeBase+maxImages && len(data) == 4:
			idx := int(minor - minorMaxApplicationSizeBase)
			e := imageEntry(idx)
			e.MaxAppSize = binary.LittleEndian.Uint32(data)
			e.MaxAppSizeKnown = true
		}
	}

	for idx := 0; idx < maxImages; idx++ {
		if e, ok := images[idx]; ok {
			d.Images = append(d.Images, *e)
		}
	}

	return d, nil
}
