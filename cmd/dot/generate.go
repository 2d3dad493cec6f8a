package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/robinstudios/dot/internal/generation/service"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

type generateOptions struct {
	brief      v1.Brief
	candidates int
}

// newGenerateCmd creates "dot generate", which runs one brief and prints the
// result as JSON.
func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate design candidates for a brief",
		Example: `  dot generate --prompt "landing page for a SaaS analytics tool" --style modern
  dot generate --prompt "portfolio" --framework react --candidates 2`,
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

			res, genErr := a.generator.Generate(cmd.Context(), service.Request{
				Brief:      opts.brief,
				Candidates: opts.candidates,
			})
			if res != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			}
			return genErr
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.brief.Prompt, "prompt", "p", "", "what to design")
	f.StringVar(&opts.brief.Style, "style", "", "visual style, e.g. modern or minimalist")
	f.StringVar(&opts.brief.Layout, "layout", "", "layout hint, e.g. grid")
	f.StringVar(&opts.brief.ColorScheme, "colors", "", "color scheme hint")
	f.StringVar(&opts.brief.Typography, "typography", "", "typography hint")
	f.StringVar(&opts.brief.DesignType, "type", "", "design type, e.g. landing-page")
	f.StringVar(&opts.brief.TargetFramework, "framework", "", "framework of the generated code")
	f.IntVarP(&opts.candidates, "candidates", "n", 0, "number of candidates (default from config)")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}
