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
	"github.com/mcu-tools/mcuboot-sub001/flash"
	"github.com/mcu-tools/mcuboot-sub001/image"
)

// SlotReadParams configures ReadSlot's trailer-layout computation; every
// field mirrors one of NewTrailerLayout's arguments, since the caller
// (not bootutil) knows how many status-table entries and encryption key
// slots a given build reserves.
type SlotReadParams struct {
	Area             flash.Area
	NumStatusEntries int
	HasEncKeys       bool
	EncKeySize       int
}

// ReadSlot reads a slot's image header and trailer state in one pass,
// producing the SlotRecord BootGo's decision table consumes. A slot
// that reads as erased (no valid header magic) comes
// back with Present=false and a zero-value Header; that is not an
// error, since a brand-new secondary slot is never written.
func ReadSlot(p SlotReadParams) (SlotRecord, error) {
	rec := SlotRecord{Area: p.Area}

	hdrRaw, err := p.Area.Read(0, image.HeaderSize)
	if err != nil {
		return SlotRecord{}, err
	}

	if image.IsErased(hdrRaw, p.Area.ErasedVal()) {
		rec.Present = false
	} else {
		hdr, err := image.DecodeHeader(hdrRaw)
		if err != nil {
			return SlotRecord{}, err
		}
		rec.Header = hdr
		rec.Present = true
	}

	sectors, err := p.Area.Sectors()
	if err != nil {
		return SlotRecord{}, err
	}
	rec.Sectors = sectors

	layout, err := image.NewTrailerLayout(p.Area.Size(), p.Area.AlignWriteBlock(),
		p.NumStatusEntries, p.HasEncKeys, p.EncKeySize)
	if err != nil {
		return SlotRecord{}, err
	}

	swap, err := image.DecodeSwapState(p.Area, layout, p.Area.ErasedVal())
	if err != nil {
		return SlotRecord{}, err
	}
	rec.Swap = swap

	return rec, nil
}
