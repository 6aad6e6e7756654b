/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package shell

import (
	"context"
)

// Privilege describes the system identity external commands run under.
// With UseSudo unset, commands run as the current user.
type Privilege struct {
	UseSudo  bool
	RunAs    string
	SudoPath string
}

func (p Privilege) Wrap(name string, args ...string) (string, []string) {
	if !p.UseSudo {
		return name, args
	}
	sudo := p.SudoPath
	if sudo == "" {
		sudo = "sudo"
	}
	wrapped := []string{}
	if p.RunAs != "" {
		wrapped = append(wrapped, "-u", p.RunAs)
	}
	wrapped = append(wrapped, name)
	wrapped = append(wrapped, args...)
	return sudo, wrapped
}

// Privileged returns a Runner that wraps every command with p.
func Privileged(r Runner, p Privilege) Runner {
	return &privilegedRunner{runner: r, privilege: p}
}

type privilegedRunner struct {
	runner    Runner
	privilege Privilege
}

func (r *privilegedRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	name, args = r.privilege.Wrap(name, args...)
	return r.runner.Run(ctx, name, args...)
}
