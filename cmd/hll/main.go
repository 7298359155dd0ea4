// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command hll is the project-management front end for the HLL
// interpreter: create a project, run or resume it, list known
// projects, and delete one.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface.
type CLI struct {
	Create CreateCmd `cmd:"" help:"Register a new project."`
	Run    RunCmd    `cmd:"" help:"Run a project from an entrypoint."`
	Resume ResumeCmd `cmd:"" help:"Resume a project's saved instance."`
	Query  QueryCmd  `cmd:"" help:"List known projects."`
	Delete DeleteCmd `cmd:"" help:"Forget a project."`

	Config    string `short:"c" help:"Path to the project settings file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose; any other value uses slog's plain text format)."`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("hll"),
		kong.Description("HLL - an interpreter for multi-turn agent conversations"),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
