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

import (
	"os"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// FileArea is a host-file-backed Area: the backend cmd/bootsim uses so a
// simulated boot's slot contents can be inspected or replayed between
// runs with ordinary file tools, the same role a .bin image plays for a
// real target's build output.
type FileArea struct {
	desc       Descriptor
	writeBlock int
	f          *os.File
	sectors    []Sector
}

var _ Area = (*FileArea)(nil)

// OpenFileArea opens (creating and erase-filling if necessary) a
// host file of exactly d.Size bytes to back this area.
func OpenFileArea(path string, d Descriptor, writeBlock int) (*FileArea, error) {
	sectors, err := sectorsFor(d)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, mcuerr.Wrapf(err, "opening flash-area file %s", path)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, mcuerr.Wrap(err)
	}
	if fi.Size() != int64(d.Size) {
		buf := make([]byte, d.Size)
		for i := range buf {
			buf[i] = d.EraseVal
		}
		if err := f.Truncate(0); err != nil {
			f.Close()
			return nil, mcuerr.Wrap(err)
		}
		if _, err := f.WriteAt(buf, 0); err != nil {
			f.Close()
			return nil, mcuerr.Wrap(err)
		}
	}

	return &FileArea{desc: d, writeBlock: writeBlock, f: f, sectors: sectors}, nil
}

func (a *FileArea) Close() error { return a.f.Close() }

func (a *FileArea) ID() int              { return a.desc.ID }
func (a *FileArea) Size() int            { return a.desc.Size }
func (a *FileArea) AlignWriteBlock() int { return a.writeBlock }
func (a *FileArea) ErasedVal() byte      { return a.desc.EraseVal }
func (a *FileArea) NeedsErase() bool     { return true }
func (a *FileArea) Sectors() ([]Sector, error) {
	return append([]Sector(nil), a.sectors...), nil
}
func (a *FileArea) SectorAt(offset int) (Sector, error) {
	return sectorAt(a.sectors, offset)
}

func (a *FileArea) Read(offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > a.desc.Size {
		return nil, mcuerr.Newf(
			"area %s: read [%d,%d) out of bounds", a.desc.Name, offset, offset+length)
	}
	buf := make([]byte, length)
	if _, err := a.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, mcuerr.Wrap(err)
	}
	return buf, nil
}

func (a *FileArea) Write(offset int, data []byte) error {
	if err := checkAligned("write", offset, len(data), a.writeBlock); err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > a.desc.Size {
		return mcuerr.Newf(
			"area %s: write [%d,%d) out of bounds", a.desc.Name, offset, offset+len(data))
	}
	if _, err := a.f.WriteAt(data, int64(offset)); err != nil {
		return mcuerr.Wrap(err)
	}
	return nil
}

func (a *FileArea) Erase(offset, length int) error {
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

func (a *FileArea) Scramble(offset, length int) error {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = a.desc.EraseVal
	}
	if _, err := a.f.WriteAt(buf, int64(offset)); err != nil {
		return mcuerr.Wrap(err)
	}
	return nil
}
