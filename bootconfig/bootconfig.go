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
// Package bootconfig holds the build-time feature selection that the
// original C bootloader expresses as a maze of preprocessor #ifdefs.
// Each choice here is a tagged Go value rather than a compiled-out
// branch, and a single Config is threaded explicitly through the boot
// driver instead of living as a global.
package bootconfig

// SigKind is the single active signature algorithm for this build.
type SigKind int

const (
	SigNone SigKind = iota
	SigRsaPss2048
	SigRsaPss3072
	SigEcdsaP256
	SigEcdsaP384
	SigEd25519
	SigEd25519Pure
)

// EncKind is the single active key-unwrap algorithm for this build, or
// EncNone if the build carries no encryption support at all.
type EncKind int

const (
	EncNone EncKind = iota
	EncRsaOaep
	EncAesKw
	EncEciesP256
	EncEciesX25519
)

// SwapMode is the single active swap algorithm for this build.
type SwapMode int

const (
	SwapOverwriteOnly SwapMode = iota
	SwapUsingScratch
	SwapUsingMove
	SwapUsingOffset
	SwapDirectXIP
	SwapRamLoad
)

func (m SwapMode) String() string {
	switch m {
	case SwapOverwriteOnly:
		return "overwrite-only"
	case SwapUsingScratch:
		return "swap-using-scratch"
	case SwapUsingMove:
		return "swap-using-move"
	case SwapUsingOffset:
		return "swap-using-offset"
	case SwapDirectXIP:
		return "direct-xip"
	case SwapRamLoad:
		return "ram-load"
	default:
		return "unknown"
	}
}

// Config is the full set of compile-time choices for one boot build.
type Config struct {
	Sig  SigKind
	Enc  EncKind
	Swap SwapMode

	// NumImages is the number of (primary, secondary) image slot pairs
	// this build manages: a runtime value rather than a hardcoded
	// BOOT_IMAGE_NUMBER <= 2 constant.
	NumImages int

	// ValidatePrimarySlotOnce selects the bound used when checking that
	// header+body+protected-TLV size fits the slot. When true, the
	// trailer's magic bytes are reserved as
	// a cached validation-status flag and the usable size is
	// area_size - BOOT_MAGIC_SZ; when false, the full area_size is
	// usable.
	ValidatePrimarySlotOnce bool

	// MustSignCount is the number of distinct signing keys that must
	// each produce a valid signature for an image to validate (§4.3).
	// Zero means "at least one signature, from any recognised key" (the
	// common case), as in sign.Outcome.Satisfied. bootutil does not read
	// this field; its count comes from ImageSlots.MinSignCount.
	MustSignCount int
}

// Default returns a single-image, ECDSA-P256, swap-using-scratch
// configuration: the combination most deployments start from.
func Default() Config {
	return Config{
		Sig:       SigEcdsaP256,
		Enc:       EncNone,
		Swap:      SwapUsingScratch,
		NumImages: 1,
	}
}
