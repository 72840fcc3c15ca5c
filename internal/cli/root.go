package cli

import (
	"context"
	"time"

	"github.com/jusunglee/departures-go/pkg/departures"
	"github.com/spf13/cobra"
)

// App holds the persistent flags shared by every command
type App struct {
	ConfigPath string
	SourceURL  string
	TimeZone   string
	Timeout    time.Duration
}

func Execute(ctx context.Context) error {
	app := &App{}
	return NewRootCmd(app).ExecuteContext(ctx)
}

func NewRootCmd(app *App) *cobra.Command {
	defaults := departures.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "departures",
		Short:         "Fetch and display the commuter rail departure board",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "toml", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&app.SourceURL, "url", defaults.SourceURL, "Departures CSV feed URL")
	cmd.PersistentFlags().StringVar(&app.TimeZone, "timezone", defaults.TimeZone, "IANA time zone for departure times")
	cmd.PersistentFlags().DurationVar(&app.Timeout, "timeout", defaults.FetchTimeout, "Feed download timeout")

	cmd.AddCommand(NewBoardCmd(app))
	cmd.AddCommand(NewClockCmd(app))

	return cmd
}

// config merges defaults, the TOML file and any flags the user changed
func (app *App) config(cmd *cobra.Command) (departures.Config, error) {
	cfg := departures.DefaultConfig()
	if app.ConfigPath != "" {
		var err error
		cfg, err = departures.LoadConfigFile(app.ConfigPath, cfg)
		if err != nil {
			return departures.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.SourceURL = app.SourceURL
	}
	if flags.Changed("timezone") {
		cfg.TimeZone = app.TimeZone
	}
	if flags.Changed("timeout") {
		cfg.FetchTimeout = app.Timeout
	}

	return cfg, cfg.Validate()
}
