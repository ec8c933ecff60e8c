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
	"github.com/mcu-tools/mcuboot-sub001/flash"
	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// UploadSession drives one image-upload conversation (§4.9):
// it validates each chunk's off against its own cursor, writes
// write-block-aligned bytes as they accumulate, and erases the
// destination slot progressively, each sector when a write first
// reaches it, instead of erasing the whole slot up front.
//
// The progressive-erase cursor lives here as a field rather than as
// module state (§9's explicit re-implementation note), so two
// sessions against two different slots never share — or clobber —
// each other's erase progress.
type UploadSession struct {
	Area flash.Area

	// PostUpload runs once the final chunk of an upload has been
	// written; it is where a caller hooks in decryption or a swap.
	PostUpload func(totalLen uint32) error

	cursor     uint32
	totalLen   uint32
	active     bool
	erasedTo   int
	pending    []byte // write-block-unaligned tail, carried to the next chunk
}

// NewUploadSession starts a session targeting area. The area is
// erased incrementally as chunks arrive; it must already be otherwise
// idle (no concurrent session may target the same area).
func NewUploadSession(area flash.Area) *UploadSession {
	return &UploadSession{Area: area}
}

// Reset discards any in-progress upload, so the session can be reused
// for a fresh one starting at off 0.
func (s *UploadSession) Reset() {
	*s = UploadSession{Area: s.Area, PostUpload: s.PostUpload}
}

func (s *UploadSession) ensureErased(upTo int) error {
	if upTo <= s.erasedTo {
		return nil
	}
	sectors, err := s.Area.Sectors()
	if err != nil {
		return err
	}
	for _, sec := range sectors {
		if sec.Offset+sec.Size <= s.erasedTo {
			continue
		}
		if sec.Offset >= upTo {
			break
		}
		if err := s.Area.Erase(sec.Offset, sec.Size); err != nil {
			return err
		}
		s.erasedTo = sec.Offset + sec.Size
	}
	return nil
}

// HandleChunk processes one UploadRequest and returns the response to
// frame back to the client. A request whose Off does not match the
// session's cursor is not an error: the client is told to retransmit
// from the cursor (§8's boundary behaviour), so Rc is OK and
// no write happens. Off 0 with a Len starts a new upload; Off 0
// without a Len is rejected with RcEInval unless an upload is already
// in progress, where it is handled like any other Off.
func (s *UploadSession) HandleChunk(req UploadRequest) (UploadResponse, error) {
	if req.Off == 0 && (req.Len != nil || !s.active) {
		if req.Len == nil {
			return UploadResponse{Rc: RcEInval}, nil
		}
		s.active = true
		s.cursor = 0
		s.totalLen = *req.Len
		s.erasedTo = 0
		s.pending = nil
	}

	if !s.active {
		return UploadResponse{Rc: RcEInval}, nil
	}

	if req.Off != s.cursor {
		off := s.cursor
		return UploadResponse{Rc: RcOK, Off: &off}, nil
	}

	writeBlock := s.Area.AlignWriteBlock()
	buf := append(s.pending, req.Data...)
	alignedLen := (len(buf) / writeBlock) * writeBlock

	if alignedLen > 0 {
		writeOff := int(s.cursor) - len(s.pending)
		if err := s.ensureErased(writeOff + alignedLen); err != nil {
			return UploadResponse{}, err
		}
		if err := s.Area.Write(writeOff, buf[:alignedLen]); err != nil {
			return UploadResponse{}, err
		}
	}
	s.pending = append([]byte{}, buf[alignedLen:]...)
	s.cursor += uint32(len(req.Data))

	if s.cursor >= s.totalLen {
		if len(s.pending) > 0 {
			writeOff := int(s.cursor) - len(s.pending)
			padded := make([]byte, writeBlock)
			for i := range padded {
				padded[i] = s.Area.ErasedVal()
			}
			copy(padded, s.pending)
			if err := s.ensureErased(writeOff + len(padded)); err != nil {
				return UploadResponse{}, err
			}
			if err := s.Area.Write(writeOff, padded); err != nil {
				return UploadResponse{}, err
			}
			s.pending = nil
		}
		s.active = false
		if s.PostUpload != nil {
			if err := s.PostUpload(s.totalLen); err != nil {
				return UploadResponse{}, mcuerr.Wrapf(err, "serial: post-upload hook failed")
			}
		}
		return UploadResponse{Rc: RcOK}, nil
	}

	off := s.cursor
	return UploadResponse{Rc: RcOK, Off: &off}, nil
}
