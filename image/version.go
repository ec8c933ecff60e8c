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

package image

import (
	"strconv"
	"strings"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// ParseVersion parses the dotted "major[.minor[.revision[.build]]]"
// form signing tools accept on the command line.
func ParseVersion(s string) (Version, error) {
	var v Version

	parts := strings.Split(s, ".")
	if len(parts) == 0 || len(parts) > 4 {
		return v, mcuerr.Newf("invalid version string %q", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return v, mcuerr.Wrapf(err, "invalid version string %q", s)
	}
	v.Major = uint8(major)

	if len(parts) > 1 {
		minor, err := strconv.ParseUint(parts[1], 10, 8)
		if err != nil {
			return v, mcuerr.Wrapf(err, "invalid version string %q", s)
		}
		v.Minor = uint8(minor)
	}
	if len(parts) > 2 {
		rev, err := strconv.ParseUint(parts[2], 10, 16)
		if err != nil {
			return v, mcuerr.Wrapf(err, "invalid version string %q", s)
		}
		v.Revision = uint16(rev)
	}
	if len(parts) > 3 {
		build, err := strconv.ParseUint(parts[3], 10, 32)
		if err != nil {
			return v, mcuerr.Wrapf(err, "invalid version string %q", s)
		}
		v.BuildNum = uint32(build)
	}

	return v, nil
}
