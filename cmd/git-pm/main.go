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

package main

import (
	"context"
	goflag "flag"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/Warrenn/git-pm/commands/add"
	"github.com/Warrenn/git-pm/commands/clean"
	"github.com/Warrenn/git-pm/commands/config"
	"github.com/Warrenn/git-pm/commands/install"
	"github.com/Warrenn/git-pm/commands/list"
	"github.com/Warrenn/git-pm/commands/remove"
	"github.com/Warrenn/git-pm/internal/cmdutil"
	"github.com/Warrenn/git-pm/internal/printer"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	pr := printer.New(os.Stdout, os.Stderr)
	ctx = printer.WithContext(ctx, pr)

	cmd := &cobra.Command{
		Use:           "git-pm",
		Short:         "materialize declared git subdirectories into a local workspace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&cmdutil.StackOnError, "stack-trace", false,
		"print a stack trace on failure")

	fs := goflag.NewFlagSet("", goflag.PanicOnError)
	klog.InitFlags(fs)
	cmd.PersistentFlags().AddGoFlagSet(fs)

	cmd.AddCommand(
		install.NewCommand(ctx),
		add.NewCommand(ctx),
		remove.NewCommand(ctx),
		clean.NewCommand(ctx),
		config.NewCommand(ctx),
		list.NewCommand(ctx),
	)

	if _, err := exec.LookPath("git"); err != nil {
		fmt.Fprintln(os.Stderr, "git-pm requires that `git` is installed and on the PATH")
		return 1
	}

	if err := cmd.Execute(); err != nil {
		return cmdutil.HandleError(err)
	}
	return 0
}
