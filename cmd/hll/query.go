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
	"os"
	"sort"

	"github.com/kadirpekel/hll/pkg/cmdserver"
	"github.com/kadirpekel/hll/pkg/config"
	"github.com/kadirpekel/hll/pkg/interp"
	"github.com/kadirpekel/hll/pkg/utils"
)

// QueryCmd lists every known project, whether it currently has an
// active (resumable) instance, and can additionally stop the local
// command server.
type QueryCmd struct {
	StopServer bool `name:"stop-server" help:"Shut down the local command server for every known project."`
}

func (c *QueryCmd) Run(cli *CLI) error {
	projects, err := loadProjects()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		fmt.Println("no known projects")
		return nil
	}

	fmt.Printf("%-24s %-50s %s\n", "PROJECT", "ROOT", "STATUS")
	for _, name := range names {
		root := projects[name]
		status := "inactive"
		dir, err := utils.EnsureProjectDir(root)
		if err == nil && interp.Active(dir) {
			status = "active"
		}
		fmt.Printf("%-24s %-50s %s\n", name, root, status)

		if c.StopServer && dir != "" {
			if err := stopServerFor(root, dir); err != nil {
				fmt.Fprintf(os.Stderr, "%s: stop server failed: %v\n", name, err)
			}
		}
	}
	return nil
}

func stopServerFor(root, dir string) error {
	configPath := root + "/hll.yaml"
	cfg, err := config.Load(config.LoaderOptions{Path: configPath, DataDir: dir})
	if err != nil {
		return err
	}
	cs := cmdserver.New(cmdserver.Config{
		SocketPath: cfg.Server.SocketPath,
		LockPath:   cfg.Server.LockPath,
		LogPath:    cfg.Server.LogPath,
	})
	return cs.Shutdown()
}

// DeleteCmd forgets a project. Its .hll directory is left on disk; only
// the projects-index entry is removed, matching spec's "updated
// atomically on create/delete" requirement for the index itself.
type DeleteCmd struct {
	Project string `arg:"" name:"pname" help:"Project name."`
}

func (c *DeleteCmd) Run(cli *CLI) error {
	projects, err := loadProjects()
	if err != nil {
		return err
	}
	if _, ok := projects[c.Project]; !ok {
		return fmt.Errorf("unknown project %q", c.Project)
	}
	delete(projects, c.Project)
	if err := saveProjects(projects); err != nil {
		return err
	}
	fmt.Printf("deleted project %q\n", c.Project)
	return nil
}
