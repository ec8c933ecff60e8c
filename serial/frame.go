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

package serial

import (
	"bytes"
	"encoding/base64"

	crc16 "github.com/joaojeronimo/go-crc16"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// Line markers. pktStart opens a fresh packet; pktCont continues one
// whose base64 text overran a single line.
var (
	pktStart = []byte{0x06, 0x09}
	pktCont  = []byte{0x04, 0x14}
)

// maxLineBase64 bounds the base64 text carried on one framed line,
// keeping the full line (two marker bytes + text + newline) inside the
// 128-byte buffers typical recovery consoles use.
const maxLineBase64 = 124

// maxBodySize is the largest cbor_body a single decoded payload may
// carry: 512 bytes total minus the 2-byte length prefix, 8-byte
// header, and 2-byte trailing CRC.
const maxBodySize = 512 - 2 - HeaderSize - 2

// EncodePacket frames one nmgr_header+cbor body as the base64/CRC16
// line sequence a recovery console reads back. body is the already
// CBOR-encoded request or response payload.
func EncodePacket(hdr Header, body []byte) ([]byte, error) {
	if len(body) > maxBodySize {
		return nil, mcuerr.Newf("serial: body of %d bytes exceeds %d-byte limit", len(body), maxBodySize)
	}

	hdrBytes := hdr.Encode()
	totalLength := HeaderSize + len(body)

	payload := make([]byte, 0, 2+totalLength+2)
	payload = append(payload, byte(totalLength>>8), byte(totalLength))
	payload = append(payload, hdrBytes...)
	payload = append(payload, body...)

	sum := crc16.Kermit(payload)
	payload = append(payload, byte(sum>>8), byte(sum))

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(payload)))
	base64.StdEncoding.Encode(encoded, payload)

	var out bytes.Buffer
	for len(encoded) > 0 {
		n := len(encoded)
		if n > maxLineBase64 {
			n = maxLineBase64
		}
		if out.Len() == 0 {
			out.Write(pktStart)
		} else {
			out.Write(pktCont)
		}
		out.Write(encoded[:n])
		out.WriteByte('\n')
		encoded = encoded[n:]
	}
	return out.Bytes(), nil
}

// DecodePacket is EncodePacket's inverse: it consumes a full framed
// packet (one or more newline-terminated lines, first marked
// pktStart, the rest pktCont) and returns the header and body once
// the CRC verifies.
func DecodePacket(framed []byte) (Header, []byte, error) {
	var encoded bytes.Buffer
	lines := bytes.Split(bytes.TrimSuffix(framed, []byte{'\n'}), []byte{'\n'})
	for i, line := range lines {
		var marker []byte
		if i == 0 {
			marker = pktStart
		} else {
			marker = pktCont
		}
		if len(line) < len(marker) || !bytes.Equal(line[:len(marker)], marker) {
			return Header{}, nil, mcuerr.Newf("serial: line %d missing expected marker", i)
		}
		encoded.Write(line[len(marker):])
	}

	payload := make([]byte, base64.StdEncoding.DecodedLen(encoded.Len()))
	n, err := base64.StdEncoding.Decode(payload, encoded.Bytes())
	if err != nil {
		return Header{}, nil, mcuerr.Wrapf(err, "serial: invalid base64 framing")
	}
	payload = payload[:n]

	if len(payload) < 2+HeaderSize+2 {
		return Header{}, nil, mcuerr.New("serial: framed payload too short")
	}

	totalLength := int(payload[0])<<8 | int(payload[1])
	if 2+totalLength+2 != len(payload) {
		return Header{}, nil, mcuerr.Newf("serial: total_length %d inconsistent with %d-byte frame", totalLength, len(payload))
	}

	body := payload[:len(payload)-2]
	wantSum := uint16(payload[len(payload)-2])<<8 | uint16(payload[len(payload)-1])
	if gotSum := crc16.Kermit(body); gotSum != wantSum {
		return Header{}, nil, mcuerr.Newf("serial: crc mismatch: got %#04x, want %#04x", gotSum, wantSum)
	}

	hdr, err := DecodeHeader(payload[2 : 2+HeaderSize])
	if err != nil {
		return Header{}, nil, err
	}
	return hdr, payload[2+HeaderSize : len(payload)-2], nil
}
