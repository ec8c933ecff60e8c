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

// Package bootutil orchestrates the image, hashimg, sign, and encrypt
// packages into the boot-time decisions of §4.5-§4.7 and §4.10:
// validating a slot's image, reading and normalising its
// trailer, and choosing what the next boot does with it.
package bootutil

import "github.com/mcu-tools/mcuboot-sub001/image"

// DecideSwapType runs the fixed three-row table of §4.7 against
// the current (primary, secondary) swap states of one image. It is
// consulted top to bottom; the first matching row wins, and no match
// means no swap is pending.
func DecideSwapType(primary, secondary image.SwapState) image.SwapType {
	switch {
	case secondary.Magic == image.FlagSet && secondary.ImageOk == image.FlagUnset:
		return image.SwapTypeTest

	case secondary.Magic == image.FlagSet && secondary.ImageOk == image.FlagSet:
		return image.SwapTypePerm

	case primary.Magic == image.FlagSet && secondary.Magic == image.FlagUnset &&
		primary.ImageOk == image.FlagUnset && primary.CopyDone == image.FlagSet:
		return image.SwapTypeRevert

	default:
		return image.SwapTypeNone
	}
}
