package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// newAgentsCmd creates "dot agents", which lists the catalog's agents and
// packs.
func newAgentsCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List agents and packs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load(true)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			agents := a.registry.ListAgents()
			packList := a.packs.ListPacks()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{"agents": agents, "packs": packList})
			}
			return printCatalog(out, agents, packList)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")
	return cmd
}

func printCatalog(out io.Writer, agents []v1.Agent, packList []v1.Pack) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tPROVIDER\tMODEL\tCAPABILITY\tSPECIALTIES")
	for _, ag := range agents {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			ag.ID, ag.Provider, ag.Model, ag.CapabilityType, strings.Join(ag.Specialties, ","))
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "PACK\tCATEGORY\tINSTALLED\tDEPENDS ON")
	for _, p := range packList {
		deps := strings.Join(p.Dependencies, ",")
		if deps == "" {
			deps = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", p.ID, p.Category, p.Installed, deps)
	}
	return tw.Flush()
}
