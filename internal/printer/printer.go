// Copyright 2024 The git-pm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package printer abstracts away the human-facing output of the git-pm
// CLI so commands can be driven from tests without capturing os.Stdout.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Printer is the narrow interface every command uses to talk to the user.
type Printer interface {
	Printf(format string, args ...interface{})
	Event(kind string, pkg string, detail string)
}

// New returns the default Printer, writing to outStream/errStream.
func New(outStream, errStream io.Writer) Printer {
	if outStream == nil {
		outStream = os.Stdout
	}
	if errStream == nil {
		errStream = os.Stderr
	}
	return &printer{outStream: outStream, errStream: errStream}
}

type printer struct {
	outStream io.Writer
	errStream io.Writer
}

func (pr *printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(pr.outStream, format, args...)
}

// Event reports one structured installer/resolver event, per spec §4.6's
// "installer emits one structured event per package install". kind is one
// of "installing", "copied", "linked", "junction", "fallback_used",
// "removed".
func (pr *printer) Event(kind string, pkg string, detail string) {
	if detail == "" {
		fmt.Fprintf(pr.outStream, "%s: %s\n", kind, pkg)
		return
	}
	fmt.Fprintf(pr.outStream, "%s: %s (%s)\n", kind, pkg, detail)
}

type contextKey int

const printerKey contextKey = 0

// FromContextOrDie returns the Printer stored in ctx, panicking if absent —
// every command path must install one in WithContext before running.
func FromContextOrDie(ctx context.Context) Printer {
	pr, ok := ctx.Value(printerKey).(Printer)
	if ok {
		return pr
	}
	panic("printer missing in context")
}

// WithContext returns a child context carrying pr.
func WithContext(ctx context.Context, pr Printer) context.Context {
	return context.WithValue(ctx, printerKey, pr)
}
