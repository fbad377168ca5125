// Copyright 2018 Bull S.A.S. Atos Technologies - Bull, Rue Jean Jaures, B.P.68, 78340, Les Clayes-sous-Bois, France.
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

package commands

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// version and gitCommit are set at build time using ldflags
var (
	version   = "1.0.0-SNAPSHOT"
	gitCommit = "undefined"
)

func init() {
	RootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Long:  `The version of clusterjob`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := semver.Parse(version)
		if err != nil {
			return errors.Wrapf(err, "invalid version %q", version)
		}
		fmt.Printf("clusterjob version: %s\n", v)
		fmt.Printf("Git commit hash: %s\n", gitCommit)
		return nil
	},
}
