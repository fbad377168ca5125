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

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ystia/clusterjob/helper/tabutil"
	"github.com/ystia/clusterjob/ledger"
)

func init() {
	var cluster string
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List submitted jobs",
		Long:  `List jobs recorded in the ledger, most recent first, with their last observed status.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			if cluster != "" {
				backend, err := getBackend(cfg, cluster)
				if err != nil {
					return err
				}
				cluster = backend.Name()
			}
			l, err := openLedger(cfg)
			if err != nil {
				return err
			}
			defer l.Close()
			records, err := l.List(cluster, limit)
			if err != nil {
				return err
			}
			colorize := !NoColor
			if colorize {
				defer color.Unset()
			}
			fmt.Println("Jobs:")
			fmt.Println(renderHistory(records, colorize))
			return nil
		},
	}
	addClusterFlag(historyCmd, &cluster)
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to list, 0 lists all jobs")
	RootCmd.AddCommand(historyCmd)
}

func renderHistory(records []ledger.Record, colorize bool) string {
	table := tabutil.NewTable()
	table.AddHeaders("Cluster", "Job Id", "Status", "Scheduler State", "Submitted", "Directory")
	for _, r := range records {
		status := "-"
		if r.Status != "" {
			status = coloredStatus(colorize, r.Status)
		}
		table.AddRow(r.Backend, r.JobID, status, r.RawStatus, humanize.Time(r.SubmittedAt), r.SubDir)
	}
	return table.Render()
}
