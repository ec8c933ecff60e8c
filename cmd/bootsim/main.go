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

// Command bootsim drives the boot core (bootutil, swap, serial) against
// host-file or in-memory flash: a CLI wrapping a library so its
// behaviour can be exercised and inspected from a shell.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mcu-tools/mcuboot-sub001/bootlog"
)

func bsUsage(cmd *cobra.Command, err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	if cmd != nil {
		cmd.Help()
	}
	os.Exit(1)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bootsim",
		Short: "bootsim drives the mcuboot-sub001 boot core against simulated flash",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	root.AddCommand(newBootCmd())
	root.AddCommand(newFaultInjectCmd())
	root.AddCommand(newUploadCmd())

	return root
}

func main() {
	bootlog.Init(logrus.InfoLevel, nil)
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		bsUsage(nil, err)
	}
}
