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

package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcu-tools/mcuboot-sub001/bootconfig"
	"github.com/mcu-tools/mcuboot-sub001/bootutil"
	"github.com/mcu-tools/mcuboot-sub001/flash"
	"github.com/mcu-tools/mcuboot-sub001/hashimg"
	"github.com/mcu-tools/mcuboot-sub001/image"
	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
	"github.com/mcu-tools/mcuboot-sub001/swap"
)

// powerCut is the sentinel error a faultArea returns once its write/
// erase budget is exhausted, standing in for the board losing power
// mid-operation (§8's power-cut testable property): every
// flash op before the budget is exhausted fully applies, and the one
// that would exceed it never starts.
var powerCut = mcuerr.New("bootsim: simulated power cut")

// faultArea wraps a flash.Area and fails the (budget+1)th Write or
// Erase call.
type faultArea struct {
	flash.Area
	budget int
	calls  int
}

func (f *faultArea) tick() error {
	f.calls++
	if f.calls > f.budget {
		return powerCut
	}
	return nil
}

func (f *faultArea) Write(offset int, data []byte) error {
	if err := f.tick(); err != nil {
		return err
	}
	return f.Area.Write(offset, data)
}

func (f *faultArea) Erase(offset, length int) error {
	if err := f.tick(); err != nil {
		return err
	}
	return f.Area.Erase(offset, length)
}

type faultInjectFlags struct {
	geometryFlags
	swapMode string
}

func newFaultInjectCmd() *cobra.Command {
	f := &faultInjectFlags{}

	cmd := &cobra.Command{
		Use:   "fault-inject",
		Short: "Cut power at every flash-op boundary of a swap and confirm a second attempt always resumes to the same result",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runFaultInject(f); err != nil {
				bsUsage(cmd, err)
			}
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&f.size, "size", 0x4000, "size in bytes of each slot")
	fl.IntVar(&f.sectorSize, "sector-size", 0x1000, "erase-sector size in bytes")
	fl.IntVar(&f.writeBlock, "write-block", 8, "flash write-block alignment in bytes")
	fl.Uint8Var(&f.eraseVal, "erase-val", 0xff, "byte value of erased flash")
	fl.StringVar(&f.swapMode, "swap", "scratch", "swap algorithm: scratch, move, offset")

	return cmd
}

// buildSwapFixture constructs a fresh primary/secondary/scratch trio:
// the secondary holds a distinct per-sector marker byte pattern so a
// successful swap is easy to confirm by content, and the primary
// starts erased (the common "nothing installed yet" case).
func buildSwapFixture(f faultInjectFlags) (pri, sec, scratch *flash.MemArea, err error) {
	pri, err = flash.NewMemArea(f.descriptor(flash.AreaNameImage0Pri, 0), f.writeBlock)
	if err != nil {
		return nil, nil, nil, err
	}
	sec, err = flash.NewMemArea(f.descriptor(flash.AreaNameImage0Sec, 1), f.writeBlock)
	if err != nil {
		return nil, nil, nil, err
	}
	scratch, err = flash.NewMemArea(f.descriptor(flash.AreaNameImageScratch, 2), f.sectorSize)
	if err != nil {
		return nil, nil, nil, err
	}

	hdr := image.Header{Magic: image.HeaderMagic, HdrSize: image.HeaderSize, Vers: image.Version{Major: 3}}
	hdrRaw := hdr.Encode()

	secSectors, err := sec.Sectors()
	if err != nil {
		return nil, nil, nil, err
	}
	for i, sector := range secSectors {
		marker := byte(0xA0 + i)
		content := bytes.Repeat([]byte{marker}, sector.Size)
		if i == 0 {
			copy(content, hdrRaw)
		}
		if err := sec.Write(sector.Offset, content); err != nil {
			return nil, nil, nil, err
		}
	}
	return pri, sec, scratch, nil
}

func slotsFor(pri, sec *flash.MemArea) (bootutil.ImageSlots, error) {
	priSlot, err := bootutil.ReadSlot(bootutil.SlotReadParams{Area: pri, NumStatusEntries: 4})
	if err != nil {
		return bootutil.ImageSlots{}, err
	}
	secSlot, err := bootutil.ReadSlot(bootutil.SlotReadParams{Area: sec, NumStatusEntries: 4})
	if err != nil {
		return bootutil.ImageSlots{}, err
	}
	return bootutil.ImageSlots{Primary: priSlot, Secondary: secSlot, HashKind: hashimg.Sha256}, nil
}

func runFaultInject(f *faultInjectFlags) error {
	mode, err := (&bootFlags{swapMode: f.swapMode}).swapModeValue()
	if err != nil {
		return err
	}
	swapType := image.SwapTypePerm

	// Reference run: no fault at all, to learn the expected final
	// content and the total number of flash ops a clean swap takes.
	refPri, refSec, refScratch, err := buildSwapFixture(*f)
	if err != nil {
		return err
	}
	refImg, err := slotsFor(refPri, refSec)
	if err != nil {
		return err
	}
	refFault := &faultArea{Area: refPri, budget: 1 << 30}
	refImg.Primary.Area = refFault
	refEngine := &swap.Engine{Config: bootconfig.Config{Swap: mode}, Scratch: refScratch, NumStatusEntries: 4}
	refHdr, err := refEngine.Swap(refImg, swapType)
	if err != nil {
		return mcuerr.Wrap(err)
	}
	refContent, err := refPri.Read(0, refPri.Size())
	if err != nil {
		return err
	}
	totalOps := refFault.calls

	for budget := 0; budget < totalOps; budget++ {
		pri, sec, scratch, err := buildSwapFixture(*f)
		if err != nil {
			return err
		}
		img, err := slotsFor(pri, sec)
		if err != nil {
			return err
		}

		faulted := &faultArea{Area: pri, budget: budget}
		img.Primary.Area = faulted
		engine := &swap.Engine{Config: bootconfig.Config{Swap: mode}, Scratch: scratch, NumStatusEntries: 4}
		if _, swapErr := engine.Swap(img, swapType); swapErr == nil {
			return mcuerr.Newf("bootsim: expected a power cut at op budget %d, swap completed instead", budget)
		}

		// Retry against the same (unwrapped) area: a resume reads its
		// progress purely from the trailer's status table, never from
		// the header, which can be transiently invalid mid-swap.
		img.Primary.Area = pri
		resumeEngine := &swap.Engine{Config: bootconfig.Config{Swap: mode}, Scratch: scratch, NumStatusEntries: 4}
		gotHdr, err := resumeEngine.Swap(img, swapType)
		if err != nil {
			return mcuerr.Wrapf(err, "bootsim: resume after cut at op budget %d failed", budget)
		}
		gotContent, err := pri.Read(0, pri.Size())
		if err != nil {
			return err
		}

		if gotHdr.Vers != refHdr.Vers || !bytes.Equal(gotContent, refContent) {
			return mcuerr.Newf("bootsim: resume after cut at op budget %d diverged from the reference run", budget)
		}
	}

	fmt.Printf("fault-inject: %d/%d crash points all resumed to the reference result\n", totalOps, totalOps)
	return nil
}
