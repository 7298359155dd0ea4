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
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kadirpekel/hll/pkg/utils"
)

// CreateCmd registers a new project: a name, a root directory holding
// its .hll source files, and any number of extra include directories
// whose .hll files are copied into the project's module scope
// alongside the root's own files.
type CreateCmd struct {
	Name    string   `arg:"" name:"pname" help:"Project name."`
	Root    string   `arg:"" name:"root" help:"Project root directory." type:"path"`
	Include []string `short:"I" name:"include" help:"Additional directory of .hll sources to include." type:"path"`
}

func (c *CreateCmd) Run(cli *CLI) error {
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return fmt.Errorf("project root %q is not a directory", root)
	}

	projects, err := loadProjects()
	if err != nil {
		return err
	}
	if existing, ok := projects[c.Name]; ok {
		return fmt.Errorf("project %q already exists at %q", c.Name, existing)
	}

	dir, err := utils.EnsureProjectDir(root)
	if err != nil {
		return err
	}
	module := filepath.Base(root)
	if err := copyModuleSources(root, module, dir); err != nil {
		return err
	}
	for _, inc := range c.Include {
		incAbs, err := filepath.Abs(inc)
		if err != nil {
			return fmt.Errorf("resolve include path %q: %w", inc, err)
		}
		if err := copyModuleSources(incAbs, module, dir); err != nil {
			return err
		}
	}

	projects[c.Name] = root
	if err := saveProjects(projects); err != nil {
		return err
	}

	fmt.Printf("created project %q at %s\n", c.Name, root)
	return nil
}

// copyModuleSources copies every *.hll file directly under srcDir into
// destDir as "<file>.<module>", the module-scoped copy layout the
// interpreter's loaders expect.
func copyModuleSources(srcDir, module, destDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("read source directory %q: %w", srcDir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".hll" {
			continue
		}
		if err := copyFile(filepath.Join(srcDir, e.Name()), filepath.Join(destDir, e.Name()+"."+module)); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %q: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %q to %q: %w", src, dst, err)
	}
	return nil
}
