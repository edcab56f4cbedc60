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

// Package cmdutil holds the small pieces of state shared by main and
// every command package: the --stack-trace flag and the single
// error-to-exit-code funnel (spec §6 "Exit codes").
package cmdutil

import (
	"errors"
	"fmt"
	"os"

	goerrors "github.com/go-errors/errors"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
)

// StackOnError, when true, prints a stack trace alongside the error
// message. Set by the --stack-trace persistent flag.
var StackOnError bool

// HandleError prints err (preceded, if StackOnError is set, by the stack
// trace of any go-errors error it wraps) and returns the process exit
// code for it, per the taxonomy in spec §7.
func HandleError(err error) int {
	if err == nil {
		return 0
	}

	if StackOnError {
		var ge *goerrors.Error
		if errors.As(err, &ge) {
			fmt.Fprint(os.Stderr, ge.ErrorStack())
		}
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return pmerrors.KindOf(err).ExitCode()
}
