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
// Package bootlog configures the boot core's logging the way the
// ancestor build tooling configures logrus for its own CLI: a compact
// timestamped formatter and a verbosity-gated writer.
package bootlog

import (
	"bytes"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	VerbositySilent  = 0
	VerbosityQuiet   = 1
	VerbosityDefault = 2
	VerbosityVerbose = 3
)

var Verbosity = VerbosityDefault

type formatter struct{}

func (f *formatter) Format(entry *log.Entry) ([]byte, error) {
	b := &bytes.Buffer{}
	b.WriteString(entry.Time.Format("2006/01/02 15:04:05.000 "))
	b.WriteString("[" + strings.ToUpper(entry.Level.String()) + "] ")
	b.WriteString(entry.Message)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Init configures logrus output and level. w defaults to os.Stderr when
// nil; pass an io.MultiWriter to additionally persist a trace file, as a
// fault-injection test harness driving the swap engine typically will.
func Init(level log.Level, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	log.SetLevel(level)
	log.SetOutput(w)
	log.SetFormatter(&formatter{})
}

// StatusMessage prints a verbosity-gated message to stdout, mirroring the
// teacher's util.StatusMessage.
func StatusMessage(level int, format string, args ...interface{}) {
	if Verbosity < level {
		return
	}
	log.Infof(format, args...)
}
