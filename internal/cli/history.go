package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past discussion results",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newApp(cmd.Context(), 0)
		if err != nil {
			return err
		}
		defer func() { _ = rt.repo.Close() }()

		results, err := rt.repo.ListResults(cmd.Context(), localUserID, historyLimit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No discussions recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tTOPIC\tDIFFICULTY\tMINUTES\tSCORE")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%d\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Topic, r.Difficulty,
				float64(r.DurationSeconds)/60, r.Score)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 10, "Number of results to show")
}
