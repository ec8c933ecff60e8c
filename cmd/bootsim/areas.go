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
	"os"
	"strings"

	"github.com/mcu-tools/mcuboot-sub001/flash"
	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
	"github.com/mcu-tools/mcuboot-sub001/sign"
)

// geometryFlags are the flash geometry parameters shared by every
// subcommand that opens file-backed areas: every slot in a simulated
// run shares one write-block size and sector size, matching how a real
// target's flash driver is uniform across its own image banks.
type geometryFlags struct {
	size       int
	sectorSize int
	writeBlock int
	eraseVal   uint8
}

func (g geometryFlags) descriptor(name string, id int) flash.Descriptor {
	return flash.Descriptor{
		Name:       name,
		ID:         id,
		Size:       g.size,
		SectorSize: g.sectorSize,
		EraseVal:   byte(g.eraseVal),
	}
}

func openArea(path string, d flash.Descriptor, writeBlock int) (*flash.FileArea, error) {
	return flash.OpenFileArea(path, d, writeBlock)
}

// parseKeyFlag parses one --key flag of the form "path:kind", where
// kind is one of the sign.Kind names (rsa2048, rsa3072, ecdsa-p256,
// ecdsa-p384, ed25519), and returns the parsed public key wrapped in a
// Ring entry. mustSign marks the entry as required by every image
// (§4.3's must_sign_count semantics).
func parseKeyFlag(spec string, mustSign bool) (sign.Entry, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return sign.Entry{}, mcuerr.Newf("bootsim: --key must be PATH:KIND, got %q", spec)
	}
	path, kindName := parts[0], parts[1]

	kind, err := parseKeyKind(kindName)
	if err != nil {
		return sign.Entry{}, err
	}

	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return sign.Entry{}, mcuerr.Wrapf(err, "bootsim: reading key %s", path)
	}
	pub, err := sign.ParsePublicKeyPEM(pemBytes, kind)
	if err != nil {
		return sign.Entry{}, mcuerr.Wrapf(err, "bootsim: parsing key %s", path)
	}
	return sign.Entry{Key: pub, MustSign: mustSign}, nil
}

func parseKeyKind(name string) (sign.Kind, error) {
	switch name {
	case "rsa2048":
		return sign.KindRsaPss2048, nil
	case "rsa3072":
		return sign.KindRsaPss3072, nil
	case "ecdsa-p256":
		return sign.KindEcdsaP256, nil
	case "ecdsa-p384":
		return sign.KindEcdsaP384, nil
	case "ed25519":
		return sign.KindEd25519, nil
	default:
		return 0, mcuerr.Newf("bootsim: unknown key kind %q", name)
	}
}

func buildRing(keySpecs []string, mustSignSpecs []string) (sign.Ring, error) {
	must := make(map[string]bool, len(mustSignSpecs))
	for _, s := range mustSignSpecs {
		must[s] = true
	}

	var ring sign.Ring
	for _, spec := range keySpecs {
		entry, err := parseKeyFlag(spec, must[spec])
		if err != nil {
			return sign.Ring{}, err
		}
		ring.Entries = append(ring.Entries, entry)
	}
	return ring, nil
}
