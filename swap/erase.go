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

package swap

import "github.com/mcu-tools/mcuboot-sub001/flash"

// eraseCursor erases each sector of an area at most once per swap,
// lazily, the first time a write is about to cross it. A cursor always
// starts at offset 0, so a resumed swap erases each sector again the
// first time it writes to it.
type eraseCursor struct {
	area     flash.Area
	erasedTo int
}

func newEraseCursor(a flash.Area) *eraseCursor {
	return &eraseCursor{area: a}
}

// ensureErased erases sector unless it is already below the cursor.
func (c *eraseCursor) ensureErased(sector flash.Sector) error {
	if sector.Offset < c.erasedTo {
		return nil
	}
	if err := c.area.Erase(sector.Offset, sector.Size); err != nil {
		return err
	}
	c.erasedTo = sector.Offset + sector.Size
	return nil
}

// copySector reads one sector of src and writes it to the same offset
// in dst, erasing dst's sector first via cursor if needed.
func copySector(dst, src flash.Area, sector flash.Sector, cursor *eraseCursor) error {
	data, err := src.Read(sector.Offset, sector.Size)
	if err != nil {
		return err
	}
	if err := cursor.ensureErased(sector); err != nil {
		return err
	}
	return dst.Write(sector.Offset, data)
}
