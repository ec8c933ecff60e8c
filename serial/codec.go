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

import "github.com/fxamacker/cbor/v2"

// Exit codes a response's rc field carries (§6).
const (
	RcOK       = 0
	RcUnknown  = 1
	RcNoMem    = 2
	RcEInval   = 3
	RcENoEnt   = 5
	RcENotSup  = 8
	RcEBusy    = 10
)

// UploadRequest is an image-group upload chunk (group 1, id
// IDImageUpload). Image and Len are only present on the first chunk
// of an upload (off == 0).
type UploadRequest struct {
	Image *uint8  `cbor:"image,omitempty"`
	Data  []byte  `cbor:"data"`
	Len   *uint32 `cbor:"len,omitempty"`
	Off   uint32  `cbor:"off"`
}

// UploadResponse answers an UploadRequest. Off is omitted once the
// upload has completed.
type UploadResponse struct {
	Rc  int     `cbor:"rc"`
	Off *uint32 `cbor:"off,omitempty"`
}

// ImageSlotState describes one flash slot in an ImageStateResponse.
type ImageSlotState struct {
	Image     int    `cbor:"image"`
	Slot      int    `cbor:"slot"`
	Version   string `cbor:"version"`
	Hash      []byte `cbor:"hash"`
	Bootable  bool   `cbor:"bootable"`
	Confirmed bool   `cbor:"confirmed"`
	Active    bool   `cbor:"active"`
	Pending   bool   `cbor:"pending"`
	Permanent bool   `cbor:"permanent"`
}

// ImageStateResponse is the body of a group-1 IDImageState READ
// response: one entry per present slot across both image banks.
type ImageStateResponse struct {
	Rc     int              `cbor:"rc"`
	Images []ImageSlotState `cbor:"images"`
}

// EraseRequest targets a single image bank's secondary slot for
// erasure (group 1, IDImageErase).
type EraseRequest struct {
	Image *uint8 `cbor:"image,omitempty"`
}

// EraseResponse is the body of an IDImageErase response.
type EraseResponse struct {
	Rc int `cbor:"rc"`
}

func marshalBody(v interface{}) ([]byte, error) {
	return cbor.Marshal(v)
}

func unmarshalBody(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}
