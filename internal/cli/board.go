package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/jusunglee/departures-go/internal/models"
	"github.com/jusunglee/departures-go/pkg/departures"
	"github.com/spf13/cobra"
)

func NewBoardCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Fetch the feed once and print the departure board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config(cmd)
			if err != nil {
				return err
			}

			client, err := departures.NewRemote(cfg)
			if err != nil {
				return err
			}

			deps, err := client.GetDepartures(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(deps)
			}
			return writeBoard(cmd.OutOrStdout(), deps)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print departures as JSON")

	return cmd
}

func writeBoard(w io.Writer, deps []models.Departure) error {
	if len(deps) == 0 {
		_, err := fmt.Fprintln(w, "No departures.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSCHEDULED\tORIGIN\tTRAIN\tDESTINATION\tTRACK\tSTATUS")
	for _, d := range deps {
		fmt.Fprintln(tw, d.CurrentTime+"\t"+d.ScheduledTime+"\t"+d.Origin+"\t"+
			strconv.Itoa(d.Trip)+"\t"+d.Destination+"\t"+d.Track+"\t"+d.StatusText)
	}
	return tw.Flush()
}
