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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kadirpekel/hll/pkg/ast"
	"github.com/kadirpekel/hll/pkg/interp"
	"github.com/kadirpekel/hll/pkg/symtab"
)

// RunCmd starts a project from a fresh entrypoint.
type RunCmd struct {
	Project string `arg:"" name:"pname" help:"Project name."`
	Agent   string `arg:"" name:"agent" help:"Agent (source file stem) to run."`
	Label   string `arg:"" optional:"" name:"label" help:"Public label to start at (default: the agent's only entrypoint)."`
	DryRun  bool   `name:"dry-run" help:"Parse and turn-analyse without starting the interpreter."`
}

func (c *RunCmd) Run(cli *CLI) error {
	rt, err := loadRuntime(cli, c.Project, c.DryRun)
	if err != nil {
		return err
	}

	agentID := rt.program.AgentNames.Query(c.Agent)
	if agentID == symtab.None {
		return fmt.Errorf("unknown agent %q", c.Agent)
	}
	dlg := rt.program.Dialogues[agentID]

	labelID, err := resolveEntrypoint(dlg, c.Label)
	if err != nil {
		return err
	}

	if c.DryRun {
		fmt.Printf("%s: valid\n", c.Project)
		return nil
	}
	if interp.Active(rt.dir) {
		return fmt.Errorf("project %q already has an active instance; use resume or delete it first", c.Project)
	}

	in, err := interp.New(rt.program, rt.dir, agentID, labelID, rt.module)
	if err != nil {
		return err
	}
	in.StrictContextLoad = rt.cfg.Interp.StrictContextLoad
	in.Loop = rt.loop
	in.CmdServer = rt.cs
	return runInterp(in)
}

// resolveEntrypoint resolves an explicit label name, or, if label is
// empty, the agent's sole public entrypoint.
func resolveEntrypoint(dlg *ast.Dialogue, label string) (int, error) {
	if label != "" {
		labelID := dlg.LabelNames.Query(label)
		if labelID == symtab.None || !dlg.Entrypoints[labelID] {
			return symtab.None, fmt.Errorf("label %q is not a public entrypoint", label)
		}
		return labelID, nil
	}
	switch len(dlg.Entrypoints) {
	case 0:
		return symtab.None, fmt.Errorf("agent has no public entrypoints")
	case 1:
		for id := range dlg.Entrypoints {
			return id, nil
		}
	}
	return symtab.None, fmt.Errorf("agent has multiple public entrypoints; specify one")
}

// ResumeCmd resumes a project's persisted instance.
type ResumeCmd struct {
	Project string `arg:"" name:"pname" help:"Project name."`
	DryRun  bool   `name:"dry-run" help:"Parse and turn-analyse without resuming the interpreter."`
}

func (c *ResumeCmd) Run(cli *CLI) error {
	rt, err := loadRuntime(cli, c.Project, c.DryRun)
	if err != nil {
		return err
	}
	if c.DryRun {
		fmt.Printf("%s: valid\n", c.Project)
		return nil
	}
	if !interp.Active(rt.dir) {
		return fmt.Errorf("project %q has no active instance to resume", c.Project)
	}

	in, err := interp.Resume(rt.program, rt.dir)
	if err != nil {
		return err
	}
	in.StrictContextLoad = rt.cfg.Interp.StrictContextLoad
	in.Loop = rt.loop
	in.CmdServer = rt.cs
	return runInterp(in)
}

// runInterp wires the process-wide SIGINT handler into in.Guard and
// drives the interpreter to completion.
func runInterp(in *interp.Interp) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	go func() {
		<-sigCh
		in.Guard.Signal()
	}()
	defer signal.Stop(sigCh)

	return in.Run(context.Background())
}
