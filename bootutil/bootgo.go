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
	"github.com/mcu-tools/mcuboot-sub001/bootinfo"
	"github.com/mcu-tools/mcuboot-sub001/fih"
	"github.com/mcu-tools/mcuboot-sub001/flash"
	"github.com/mcu-tools/mcuboot-sub001/hashimg"
	"github.com/mcu-tools/mcuboot-sub001/image"
	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
	"github.com/mcu-tools/mcuboot-sub001/sign"
)

// SlotRecord is the per-(image, slot) boot-loader state: a borrowed
// area, its decoded header (absent if the slot
// reads as erased), its trailer-derived swap state, and the sector map
// the swap engine walks.
type SlotRecord struct {
	Area    flash.Area
	Header  image.Header
	Present bool // false if the slot reads as erased (no image header)
	Swap    image.SwapState
	Sectors []flash.Sector
}

// ImageSlots is one image's primary/secondary pair plus the validation
// parameters constant across both slots (key ring, hash kind, and so
// on); the per-slot data (area, header, trailer state, sector map) is
// carried in each SlotRecord.
type ImageSlots struct {
	Primary   SlotRecord
	Secondary SlotRecord

	Ring               sign.Ring
	MinSignCount       int
	HashKind           hashimg.Kind
	SecurityCounterMin uint32
}

// Swapper is the boundary bootutil calls into the swap engine (§4.8)
// through: BootGo decides swap_type and resume posture, the swap
// package supplies the mechanism. Kept as an interface so bootutil has
// no import-cycle on swap (which itself depends on bootutil's decision
// table and slot-state types).
type Swapper interface {
	// Swap executes (or resumes) the swap for one image given the
	// decision-table result, returning the new primary-slot header once
	// the primary is in its final, bootable state.
	Swap(img ImageSlots, swapType image.SwapType) (image.Header, error)
}

// BootResult is boot_go's return value: the flash device and offset of
// the image the caller should jump to, plus its header.
type BootResult struct {
	FlashDevID int
	ImageOff   int
	Header     image.Header
}

// ValidateSlot runs the image validator against one slot's
// already-decoded header, using the whole image's key ring and policy.
// A slot that reads as erased (Present == false) has nothing to
// validate and is reported as passing.
func ValidateSlot(slot SlotRecord, img ImageSlots) (fih.VerifyOutcome, error) {
	if !slot.Present {
		return fih.Success(), nil
	}
	return Validate(ValidateParams{
		Area:               slot.Area,
		Header:             slot.Header,
		ProtectTlvSize:     int(slot.Header.ProtectTlvSize),
		HashKind:           img.HashKind,
		ChunkSize:          256,
		Ring:               img.Ring,
		MinSignCount:       img.MinSignCount,
		SecurityCounterMin: img.SecurityCounterMin,
	})
}

// BootGo runs the boot driver over a single image: validate the
// secondary slot, decide swap_type, invoke the swap engine if one is
// pending, re-validate the primary once the swap completes, and return
// its final header. Multi-image boots call this once per image index
// and aggregate the results; the shared-data publication step is the
// caller's responsibility via the bootinfo package once every image has
// booted.
func BootGo(img ImageSlots, swapper Swapper) (BootResult, error) {
	if img.Secondary.Present {
		outcome, err := ValidateSlot(img.Secondary, img)
		if err != nil {
			return BootResult{}, err
		}
		if !outcome.IsSuccess() {
			// A corrupted or unauthenticated secondary is treated as
			// though the slot were erased rather than swapped into the
			// primary (§7's propagation policy).
			img.Secondary.Present = false
			img.Secondary.Swap = image.SwapState{}
		}
	}

	swapType := image.SwapTypeNone
	if img.Primary.Present || img.Secondary.Present {
		swapType = DecideSwapType(img.Primary.Swap, img.Secondary.Swap)
	}

	finalHeader := img.Primary.Header
	if swapType != image.SwapTypeNone {
		if swapper == nil {
			return BootResult{}, mcuerr.New("bootutil: swap required but no Swapper configured")
		}
		hdr, err := swapper.Swap(img, swapType)
		if err != nil {
			return BootResult{}, err
		}
		finalHeader = hdr

		outcome, err := ValidateSlot(SlotRecord{Area: img.Primary.Area, Header: hdr, Present: true}, img)
		if err != nil {
			return BootResult{}, err
		}
		if !outcome.IsSuccess() {
			return BootResult{}, mcuerr.New("bootutil: primary slot failed validation after swap")
		}
	}

	return BootResult{
		FlashDevID: img.Primary.Area.ID(),
		ImageOff:   0,
		Header:     finalHeader,
	}, nil
}

// PublishBootInfo assembles the shared-data record describing how the
// system just booted, for the running image to read at startup.
func PublishBootInfo(results []BootResult, bootloaderVersion string) bootinfo.SharedData {
	entries := make([]bootinfo.ImageEntry, len(results))
	for i, r := range results {
		entries[i] = bootinfo.ImageEntry{
			ImageIndex: i,
			RunningOff: r.ImageOff,
			Version:    r.Header.Vers.String(),
		}
	}
	return bootinfo.SharedData{
		BootloaderVersion: bootloaderVersion,
		Images:            entries,
	}
}
