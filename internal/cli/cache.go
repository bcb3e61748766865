package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBuildCacheCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build-cache",
		Short: "Construct the configured code and persist its matrices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			m := p.Matrices()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Code: %s\n", m.Params)
			fmt.Fprintf(out, "Number of message bits: %d\n", m.K())
			fmt.Fprintf(out, "Number of coded bits: %d\n", m.N())
			fmt.Fprintf(out, "Code rate: %.4f\n", float64(m.K())/float64(m.N()))
			if a.cfg.Cache.Path != "" {
				fmt.Fprintf(out, "Cache: %s\n", a.cfg.Cache.Path)
			}
			return nil
		},
	}
}
