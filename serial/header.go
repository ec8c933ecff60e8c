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

// Package serial implements the framed CBOR mcumgr serial-recovery
// protocol: the out-of-band image uploader a recovery console drives
// over a UART, sharing the flash slots the swap engine owns. Its wire
// format is an 8-byte bit-field header, CBOR bodies, and base64+CRC16
// line framing.
package serial

import "github.com/mcu-tools/mcuboot-sub001/mcuerr"

// Op is the request/response operation carried in a Header's op field.
type Op uint8

const (
	OpRead     Op = 0
	OpReadRsp  Op = 1
	OpWrite    Op = 2
	OpWriteRsp Op = 3
)

// Group identifies which command set an Id is drawn from.
type Group uint16

const (
	GroupDefault Group = 0
	GroupImage   Group = 1
	GroupPerUser Group = 64
)

// Default-group command IDs.
const (
	IDEcho = iota
	IDConsoleEchoControl
	IDTaskStats
	IDMpStats
	IDDatetimeString
	IDReset
)

// Image-group command IDs.
const (
	IDImageState = iota
	IDImageUpload
	IDImageErase = 5
)

// HeaderSize is the fixed byte width of nmgr_header (§6).
const HeaderSize = 8

// Header is the 8-byte newtmgr request/response header: a bit-packed
// first byte (op:3, version:2, reserved:3) followed by flags, a
// big-endian body length, a big-endian group, and single-byte
// sequence/command-id fields.
type Header struct {
	Op      Op
	Version uint8
	Flags   uint8
	Length  uint16
	Group   Group
	Seq     uint8
	ID      uint8
}

// Encode serialises h to its 8-byte wire form.
func (h Header) Encode() []byte {
	out := make([]byte, HeaderSize)
	out[0] = (uint8(h.Op)&0x7)<<5 | (h.Version&0x3)<<3
	out[1] = h.Flags
	out[2] = byte(h.Length >> 8)
	out[3] = byte(h.Length)
	out[4] = byte(h.Group >> 8)
	out[5] = byte(h.Group)
	out[6] = h.Seq
	out[7] = h.ID
	return out
}

// DecodeHeader parses the 8-byte header at the start of raw.
func DecodeHeader(raw []byte) (Header, error) {
	var h Header
	if len(raw) < HeaderSize {
		return h, mcuerr.Newf("serial: header needs %d bytes, got %d", HeaderSize, len(raw))
	}
	h.Op = Op((raw[0] >> 5) & 0x7)
	h.Version = (raw[0] >> 3) & 0x3
	h.Flags = raw[1]
	h.Length = uint16(raw[2])<<8 | uint16(raw[3])
	h.Group = Group(uint16(raw[4])<<8 | uint16(raw[5]))
	h.Seq = raw[6]
	h.ID = raw[7]
	return h, nil
}
