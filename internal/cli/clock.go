package cli

import (
	"fmt"
	"strconv"

	"github.com/jusunglee/departures-go/internal/models"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewClockCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock <epoch-seconds>...",
		Short: "Render feed timestamps as board clock times",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config(cmd)
			if err != nil {
				return err
			}

			loc, err := models.LoadLocation(cfg.TimeZone)
			if err != nil {
				return err
			}

			for _, arg := range args {
				ts, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return errors.Wrapf(err, "invalid timestamp %q", arg)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", ts, models.FormatClock(ts, loc))
			}
			return nil
		},
	}

	return cmd
}
