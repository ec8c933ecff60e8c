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

// Package swap implements the swap engine §4.8 describes: the
// mechanism BootGo's decision table (bootutil.DecideSwapType) hands off
// to once a swap_type other than NONE is pending. Engine implements
// bootutil.Swapper so bootutil never imports this package directly.
package swap

import (
	"encoding/binary"

	"github.com/mcu-tools/mcuboot-sub001/flash"
	"github.com/mcu-tools/mcuboot-sub001/image"
	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// ProgressRecord names the sector the engine was working on and which
// of its three sub-steps had durably completed when the record was
// written, mirroring bootutil_priv.h's BOOT_STATUS_STATE_0/1/2: one
// record per sub-step, not one per sector. A resumed swap reads the
// last non-erased record and replays only the sub-steps it does not
// already cover, so it never re-derives a sub-step's input from flash
// state that a later sub-step has already overwritten.
type ProgressRecord struct {
	Idx   uint32
	State uint8
}

// The three sub-steps of one sector's rotation, written in this order:
// the sector's old primary content is durably backed up before
// anything is overwritten, the primary sector is overwritten with the
// new content, and finally the backed-up old content is restored into
// the secondary slot. Each is its own status-table slot (see
// progressSlot), since flash.Area.Write refuses to change an
// already-written byte in place.
const (
	StepBackupDone  uint8 = 1
	StepPrimaryDone uint8 = 2
	StepSwapDone    uint8 = 3
)

// progressSlot maps a sector index and sub-step (0, 1, or 2) to its
// flat status-table slot. image.NewTrailerLayout already reserves
// three slots per sector (BOOT_STATUS_STATE_0/1/2's table sizing), so
// NumStatusEntries must be at least the sector count for every slot
// this produces to land inside the table.
func progressSlot(sectorIdx, subStep int) int {
	return sectorIdx*3 + subStep
}

const progressPayloadSize = 5 // 4-byte idx, 1-byte state

func entryStride(writeBlock int) int {
	if writeBlock >= progressPayloadSize {
		return writeBlock
	}
	n := progressPayloadSize / writeBlock
	if progressPayloadSize%writeBlock != 0 {
		n++
	}
	return n * writeBlock
}

func encodeProgress(r ProgressRecord, stride int, erasedVal byte) []byte {
	buf := make([]byte, stride)
	for i := range buf {
		buf[i] = erasedVal
	}
	binary.LittleEndian.PutUint32(buf[0:4], r.Idx)
	buf[4] = r.State
	return buf
}

func allErased(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}

// WriteProgress durably records that step n of the swap has reached r,
// at slot index n of the trailer's status table.
func WriteProgress(a flash.Area, layout image.TrailerLayout, n int, r ProgressRecord) error {
	stride := entryStride(layout.WriteBlock)
	off := layout.StatusOff + n*stride
	if off+stride > layout.EncKey0Off {
		return mcuerr.New("swap: status table exhausted before swap completed")
	}
	return a.Write(off, encodeProgress(r, stride, a.ErasedVal()))
}

// ReadProgress scans the status table from its start and returns the
// last non-erased record, the slot index it occupies, and ok=true; ok
// is false when the table is entirely erased, meaning no swap is
// currently in progress on this area.
func ReadProgress(a flash.Area, layout image.TrailerLayout) (rec ProgressRecord, n int, ok bool, err error) {
	stride := entryStride(layout.WriteBlock)
	erasedVal := a.ErasedVal()
	for off := layout.StatusOff; off+stride <= layout.EncKey0Off; off += stride {
		raw, rerr := a.Read(off, stride)
		if rerr != nil {
			return ProgressRecord{}, 0, false, rerr
		}
		if allErased(raw, erasedVal) {
			break
		}
		rec = ProgressRecord{Idx: binary.LittleEndian.Uint32(raw[0:4]), State: raw[4]}
		n = (off - layout.StatusOff) / stride
		ok = true
	}
	return rec, n, ok, nil
}
