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
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/helper/tabutil"
	"github.com/ystia/clusterjob/prov"
)

func init() {
	var check bool
	clustersCmd := &cobra.Command{
		Use:     "clusters",
		Aliases: []string{"cluster", "cl"},
		Short:   "List available clusters",
		Long: `List builtin clusters and those defined in dialect files.
With --check the scheduler commands of each cluster are looked up in the PATH.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := renderClusters(getConfig(), check, exec.LookPath)
			if err != nil {
				return err
			}
			fmt.Println("Clusters:")
			fmt.Println(out)
			return nil
		},
	}
	clustersCmd.Flags().BoolVar(&check, "check", false, "Check that scheduler commands are available")
	RootCmd.AddCommand(clustersCmd)
}

type flavored interface {
	Flavor() string
}

func renderClusters(cfg config.Configuration, check bool, lookPath prov.LookPathFunc) (string, error) {
	reg, err := buildRegistry(cfg, nil)
	if err != nil {
		return "", err
	}
	table := tabutil.NewTable()
	headers := []string{"Name", "Flavor", "Resources", "Origin"}
	if check {
		headers = append(headers, "Commands")
	}
	table.AddHeaders(headers...)
	for _, m := range reg.List() {
		var flavor string
		if f, ok := m.Backend.(flavored); ok {
			flavor = f.Flavor()
		}
		var keywords []string
		for _, k := range prov.Keywords {
			if _, ok := m.Backend.Dialect().Flags[k]; ok || k == prov.CoreType {
				keywords = append(keywords, string(k))
			}
		}
		row := []interface{}{m.Name, flavor, strings.Join(keywords, ","), m.Origin}
		if check {
			status := "ok"
			if err := prov.CheckExecutables(m.Backend, lookPath); err != nil {
				status = coloredError(!NoColor, "missing")
			}
			row = append(row, status)
		}
		table.AddRow(row...)
	}
	return table.Render(), nil
}
