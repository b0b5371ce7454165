// Copyright 2024 The Orus Authors
// This file is part of Orus.
//
// Orus is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Orus is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Orus. If not, see <http://www.gnu.org/licenses/>.

// Package xlog is the VM's trace/diagnostic logger: keyed-pairs calling
// convention (log.Info("msg", "key", val, ...)), with caller location
// captured via github.com/go-stack/stack instead of hand-rolling it with
// runtime.Caller.
package xlog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-stack/stack"
)

// Logger writes keyed-pairs trace lines, gated by Enabled so the
// ORUS_TRACE on/off switch costs nothing when off beyond a bool check.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	Enabled bool
}

// New returns a Logger writing to out (os.Stderr if out is nil).
func New(out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out}
}

// Trace emits one line if the logger is enabled: "msg key=val key=val ...",
// followed by the immediate caller's file:line. ctx must be an even-length
// list of alternating keys and values.
func (l *Logger) Trace(msg string, ctx ...interface{}) {
	if !l.Enabled {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	call := stack.Caller(1)
	fmt.Fprintf(l.out, "trace: %s", msg)
	for i := 0; i+1 < len(ctx); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", ctx[i], ctx[i+1])
	}
	fmt.Fprintf(l.out, " (%n %v)\n", call, call)
}

// Error emits a line unconditionally (diagnostics the user always needs to
// see, e.g. an uncaught runtime error reaching the CLI).
func (l *Logger) Error(msg string, ctx ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "error: %s", msg)
	for i := 0; i+1 < len(ctx); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", ctx[i], ctx[i+1])
	}
	fmt.Fprintln(l.out)
}
