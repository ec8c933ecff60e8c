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
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"

	"github.com/mcu-tools/mcuboot-sub001/flash"
	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
	"github.com/mcu-tools/mcuboot-sub001/serial"
)

// errSessionReset is returned by sendImage when it simulates the
// console losing its upload session (e.g. the link dropping) partway
// through: a fresh serial.UploadSession has no memory of any chunk
// already acknowledged, so the client can only restart at off 0.
var errSessionReset = mcuerr.New("bootsim: simulated upload session reset")

type uploadFlags struct {
	geometryFlags
	imagePath  string
	targetPath string
	chunkSize  int
	resetAfter int
}

func newUploadCmd() *cobra.Command {
	f := &uploadFlags{}

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Feed an image file through the serial-recovery upload handler into a host-file flash area",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runUpload(f); err != nil {
				bsUsage(cmd, err)
			}
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.imagePath, "image", "", "path to the image file to upload")
	fl.StringVar(&f.targetPath, "target", "", "path to the flash image the upload writes into")
	fl.IntVar(&f.size, "size", 0x20000, "size in bytes of the target slot")
	fl.IntVar(&f.sectorSize, "sector-size", 0x1000, "erase-sector size in bytes")
	fl.IntVar(&f.writeBlock, "write-block", 8, "flash write-block alignment in bytes")
	fl.Uint8Var(&f.eraseVal, "erase-val", 0xff, "byte value of erased flash")
	fl.IntVar(&f.chunkSize, "chunk-size", 64, "bytes of image data carried per upload request")
	fl.IntVar(&f.resetAfter, "reset-after", 0, "simulate the console dropping its upload session after this many chunks (0 disables)")
	cmd.MarkFlagRequired("image")
	cmd.MarkFlagRequired("target")

	return cmd
}

func runUpload(f *uploadFlags) error {
	target, err := openArea(f.targetPath, f.descriptor(flash.AreaNameImage0Sec, 1), f.writeBlock)
	if err != nil {
		return err
	}
	defer target.Close()

	data, err := os.ReadFile(f.imagePath)
	if err != nil {
		return mcuerr.Wrapf(err, "bootsim: reading image %s", f.imagePath)
	}

	attempts := 0
	for {
		attempts++
		session := serial.NewUploadSession(target)
		handler := &serial.Handler{Upload: session}

		sent, err := sendImage(handler, data, f.chunkSize, f.resetAfter)
		if err == errSessionReset {
			fmt.Printf("upload: session reset after %d chunks, restarting from offset 0\n", sent)
			continue
		}
		if err != nil {
			return err
		}
		break
	}

	fmt.Printf("upload: %d bytes written to %s in %d attempt(s)\n", len(data), f.targetPath, attempts)
	return nil
}

// sendImage drives one upload session end to end over the real framed
// wire format: every chunk is CBOR-marshalled, wrapped by
// serial.EncodePacket, handed to the handler as a recovery console
// would, and the framed response is decoded back. It honours an
// off mismatch the way a real client must: reset its local cursor to
// the reported value and resend from there rather than treating it as
// an error (§8's retransmit-on-mismatch property).
func sendImage(handler *serial.Handler, data []byte, chunkSize int, resetAfter int) (int, error) {
	off := 0
	seq := 0
	for off < len(data) {
		if resetAfter > 0 && seq == resetAfter {
			return seq, errSessionReset
		}
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}

		req := serial.UploadRequest{
			Data: data[off:end],
			Off:  uint32(off),
		}
		if off == 0 {
			l := uint32(len(data))
			req.Len = &l
		}

		body, err := cbor.Marshal(req)
		if err != nil {
			return seq, mcuerr.Wrapf(err, "bootsim: encoding upload chunk")
		}
		hdr := serial.Header{
			Op:     serial.OpWrite,
			Group:  serial.GroupImage,
			ID:     uint8(serial.IDImageUpload),
			Seq:    uint8(seq),
			Length: uint16(len(body)),
		}
		framed, err := serial.EncodePacket(hdr, body)
		if err != nil {
			return seq, err
		}

		rspFramed, err := handler.Dispatch(framed)
		if err != nil {
			return seq, mcuerr.Wrapf(err, "bootsim: dispatching upload chunk")
		}
		_, rspBody, err := serial.DecodePacket(rspFramed)
		if err != nil {
			return seq, err
		}
		var rsp serial.UploadResponse
		if err := cbor.Unmarshal(rspBody, &rsp); err != nil {
			return seq, mcuerr.Wrapf(err, "bootsim: decoding upload response")
		}
		if rsp.Rc != serial.RcOK {
			return seq, mcuerr.Newf("bootsim: upload chunk at off %d rejected, rc=%d", off, rsp.Rc)
		}

		seq++
		if rsp.Off != nil {
			off = int(*rsp.Off)
			continue
		}
		off = end
	}
	return seq, nil
}
