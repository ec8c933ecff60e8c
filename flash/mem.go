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
package flash

import "github.com/mcu-tools/mcuboot-sub001/mcuerr"

// MemArea is an in-memory Area backend: the default for unit tests that
// need a fresh, cheaply-snapshottable flash image (e.g. to fork state at
// every possible crash point, per §8's power-cut properties).
type MemArea struct {
	desc       Descriptor
	writeBlock int
	data       []byte
	sectors    []Sector
}

var _ Area = (*MemArea)(nil)

// NewMemArea creates an all-erased area of d.Size bytes with the given
// descriptor and write-block size.
func NewMemArea(d Descriptor, writeBlock int) (*MemArea, error) {
	sectors, err := sectorsFor(d)
	if err != nil {
		return nil, err
	}

	data := make([]byte, d.Size)
	for i := range data {
		data[i] = d.EraseVal
	}

	return &MemArea{
		desc:       d,
		writeBlock: writeBlock,
		data:       data,
		sectors:    sectors,
	}, nil
}

// Snapshot returns an independent copy of the area's current contents,
// used by crash-injection tests to fork execution after each flash op.
func (a *MemArea) Snapshot() *MemArea {
	cp := *a
	cp.data = append([]byte(nil), a.data...)
	cp.sectors = append([]Sector(nil), a.sectors...)
	return &cp
}

func (a *MemArea) ID() int               { return a.desc.ID }
func (a *MemArea) Size() int             { return a.desc.Size }
func (a *MemArea) AlignWriteBlock() int  { return a.writeBlock }
func (a *MemArea) ErasedVal() byte       { return a.desc.EraseVal }
func (a *MemArea) NeedsErase() bool      { return true }
func (a *MemArea) Sectors() ([]Sector, error) {
	return append([]Sector(nil), a.sectors...), nil
}
func (a *MemArea) SectorAt(offset int) (Sector, error) {
	return sectorAt(a.sectors, offset)
}

func (a *MemArea) Read(offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > a.desc.Size {
		return nil, mcuerr.Newf(
			"area %s: read [%d,%d) out of bounds (size %d)",
			a.desc.Name, offset, offset+length, a.desc.Size)
	}
	out := make([]byte, length)
	copy(out, a.data[offset:offset+length])
	return out, nil
}

func (a *MemArea) Write(offset int, data []byte) error {
	if err := checkAligned("write", offset, len(data), a.writeBlock); err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > a.desc.Size {
		return mcuerr.Newf(
			"area %s: write [%d,%d) out of bounds (size %d)",
			a.desc.Name, offset, offset+len(data), a.desc.Size)
	}
	for i, b := range data {
		if a.data[offset+i] != a.desc.EraseVal && a.data[offset+i] != b {
			return mcuerr.Newf(
				"area %s: write to non-erased byte at offset %d",
				a.desc.Name, offset+i)
		}
	}
	copy(a.data[offset:offset+len(data)], data)
	return nil
}

func (a *MemArea) Erase(offset, length int) error {
	sector, err := sectorAt(a.sectors, offset)
	if err != nil {
		return err
	}
	if offset != sector.Offset || length%sector.Size != 0 {
		return mcuerr.Newf(
			"area %s: erase [%d,%d) not sector-aligned", a.desc.Name, offset, offset+length)
	}
	return a.Scramble(offset, length)
}

func (a *MemArea) Scramble(offset, length int) error {
	if offset < 0 || length < 0 || offset+length > a.desc.Size {
		return mcuerr.Newf(
			"area %s: scramble [%d,%d) out of bounds", a.desc.Name, offset, offset+length)
	}
	for i := offset; i < offset+length; i++ {
		a.data[i] = a.desc.EraseVal
	}
	return nil
}
