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
// Package flash defines the flash-area contract the boot core consumes
// (§6) and provides the in-memory and host-file backends used by
// the simulator and test suite to exercise it. Real vendor flash drivers
// are out of scope (§1); these backends exist only so the swap
// engine and boot driver are testable on a host.
package flash

import (
	"sort"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// Sector describes one erase-granularity unit of an area.
type Sector struct {
	Offset int
	Size   int
}

// Area is the flash-area contract consumed by the boot core. offset and
// len are always multiples of the write-block size for Read/Write, and
// of a sector boundary for Erase; implementations must reject
// misaligned calls rather than silently rounding.
type Area interface {
	ID() int
	Size() int
	AlignWriteBlock() int
	ErasedVal() byte

	Read(offset, length int) ([]byte, error)
	Write(offset int, data []byte) error
	Erase(offset, length int) error

	// NeedsErase reports whether this medium requires an erase cycle
	// before a write can change a bit 0->1. Byte-addressable media (e.g.
	// a RAM-backed test double) may return false; Scramble is then used
	// instead of Erase to reach the erased-value pattern.
	NeedsErase() bool
	Scramble(offset, length int) error

	Sectors() ([]Sector, error)
	SectorAt(offset int) (Sector, error)
}

// Descriptor is the static identity/geometry of an area, mirroring the
// teacher's artifact/flash.FlashArea (name/id/device/offset/size), used
// to build in-memory and host-file areas and to detect layout errors
// before opening them.
type Descriptor struct {
	Name       string
	ID         int
	Device     int
	Offset     int
	Size       int
	SectorSize int
	EraseVal   byte
}

const (
	AreaNameBootloader   = "FLASH_AREA_BOOTLOADER"
	AreaNameImage0Pri    = "FLASH_AREA_IMAGE_PRIMARY_0"
	AreaNameImage0Sec    = "FLASH_AREA_IMAGE_SECONDARY_0"
	AreaNameImageScratch = "FLASH_AREA_IMAGE_SCRATCH"
)

type areaOffSorter struct {
	areas []Descriptor
}

func (s areaOffSorter) Len() int      { return len(s.areas) }
func (s areaOffSorter) Swap(i, j int) { s.areas[i], s.areas[j] = s.areas[j], s.areas[i] }
func (s areaOffSorter) Less(i, j int) bool {
	a, b := s.areas[i], s.areas[j]
	if a.Device != b.Device {
		return a.Device < b.Device
	}
	return a.Offset < b.Offset
}

// SortByDevOff returns descriptors ordered by (device, offset), the way
// artifact/flash.SortFlashAreasByDevOff orders a target's flash map.
func SortByDevOff(areas []Descriptor) []Descriptor {
	sorter := areaOffSorter{areas: append([]Descriptor(nil), areas...)}
	sort.Sort(sorter)
	return sorter.areas
}

func distinct(a, b Descriptor) bool {
	lo, hi := a, b
	if b.Offset < a.Offset {
		lo, hi = b, a
	}
	return lo.Device != hi.Device || lo.Offset+lo.Size <= hi.Offset
}

// DetectOverlaps reports any pair of areas on the same device whose byte
// ranges intersect, the same check artifact/flash.DetectErrors performs
// over a target's flash map before accepting it.
func DetectOverlaps(areas []Descriptor) [][2]Descriptor {
	var overlaps [][2]Descriptor
	for i := 0; i < len(areas)-1; i++ {
		for j := i + 1; j < len(areas); j++ {
			if !distinct(areas[i], areas[j]) {
				overlaps = append(overlaps, [2]Descriptor{areas[i], areas[j]})
			}
		}
	}
	return overlaps
}

func sectorsFor(d Descriptor) ([]Sector, error) {
	if d.SectorSize <= 0 {
		return nil, mcuerr.Newf("area %s: sector size must be positive", d.Name)
	}
	if d.Size%d.SectorSize != 0 {
		return nil, mcuerr.Newf(
			"area %s: size %d is not a multiple of sector size %d",
			d.Name, d.Size, d.SectorSize)
	}

	n := d.Size / d.SectorSize
	sectors := make([]Sector, n)
	for i := 0; i < n; i++ {
		sectors[i] = Sector{Offset: i * d.SectorSize, Size: d.SectorSize}
	}
	return sectors, nil
}

func sectorAt(sectors []Sector, offset int) (Sector, error) {
	for _, s := range sectors {
		if offset >= s.Offset && offset < s.Offset+s.Size {
			return s, nil
		}
	}
	return Sector{}, mcuerr.Newf("offset %d outside any sector", offset)
}

func checkAligned(what string, offset, length, unit int) error {
	if unit <= 0 {
		return mcuerr.Newf("%s: invalid alignment unit %d", what, unit)
	}
	if offset%unit != 0 || length%unit != 0 {
		return mcuerr.Newf(
			"%s: offset %d / length %d not aligned to %d", what, offset, length, unit)
	}
	return nil
}
