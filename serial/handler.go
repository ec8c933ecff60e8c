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

import "github.com/mcu-tools/mcuboot-sub001/mcuerr"

// Handler dispatches framed requests to the image-group command set
// §4.9 names. Only the image group is implemented; any other
// group's request is answered with RcENotSup, since no other group's
// commands are reachable from flash-swap state.
type Handler struct {
	Upload *UploadSession

	// State is invoked for a group-1 IDImageState READ; callers
	// supply it to describe the slots their own boot core knows
	// about.
	State func() (ImageStateResponse, error)

	// Erase is invoked for a group-1 IDImageErase WRITE.
	Erase func(req EraseRequest) (EraseResponse, error)
}

// Dispatch decodes one framed packet, routes it to the matching
// command, and returns the framed response packet.
func (h *Handler) Dispatch(framed []byte) ([]byte, error) {
	hdr, body, err := DecodePacket(framed)
	if err != nil {
		return nil, err
	}

	rspHdr := hdr
	var rspBody []byte

	switch {
	case hdr.Group == GroupImage && hdr.ID == IDImageUpload && hdr.Op == OpWrite:
		rspHdr.Op = OpWriteRsp
		rspBody, err = h.dispatchUpload(body)
	case hdr.Group == GroupImage && hdr.ID == IDImageState && hdr.Op == OpRead:
		rspHdr.Op = OpReadRsp
		rspBody, err = h.dispatchState()
	case hdr.Group == GroupImage && hdr.ID == IDImageErase && hdr.Op == OpWrite:
		rspHdr.Op = OpWriteRsp
		rspBody, err = h.dispatchErase(body)
	default:
		rspHdr.Op = OpWriteRsp
		rspBody, err = marshalBody(UploadResponse{Rc: RcENotSup})
	}
	if err != nil {
		return nil, err
	}

	rspHdr.Length = uint16(len(rspBody))
	return EncodePacket(rspHdr, rspBody)
}

func (h *Handler) dispatchUpload(body []byte) ([]byte, error) {
	if h.Upload == nil {
		return marshalBody(UploadResponse{Rc: RcENotSup})
	}
	var req UploadRequest
	if err := unmarshalBody(body, &req); err != nil {
		return nil, mcuerr.Wrapf(err, "serial: malformed upload request")
	}
	rsp, err := h.Upload.HandleChunk(req)
	if err != nil {
		return nil, err
	}
	return marshalBody(rsp)
}

func (h *Handler) dispatchState() ([]byte, error) {
	if h.State == nil {
		return marshalBody(ImageStateResponse{Rc: RcENotSup})
	}
	rsp, err := h.State()
	if err != nil {
		return nil, err
	}
	return marshalBody(rsp)
}

func (h *Handler) dispatchErase(body []byte) ([]byte, error) {
	if h.Erase == nil {
		return marshalBody(EraseResponse{Rc: RcENotSup})
	}
	var req EraseRequest
	if err := unmarshalBody(body, &req); err != nil {
		return nil, mcuerr.Wrapf(err, "serial: malformed erase request")
	}
	rsp, err := h.Erase(req)
	if err != nil {
		return nil, err
	}
	return marshalBody(rsp)
}
