package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"dualcal/internal/calendar"
	"dualcal/internal/config"
	"dualcal/internal/ics"
	appLog "dualcal/internal/log"
	"dualcal/internal/refresh"
	"dualcal/internal/termview"
	"dualcal/internal/web"
)

const defaultCacheDir = "/var/lib/dualcal/ics-cache"

// loadConfig reads .env, the YAML file and DUALCAL_* overrides, then
// configures logging from the result.
func loadConfig(path string) (*config.Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.ApplyEnv()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := appLog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = appLog.LevelInfo
	}
	appLog.Configure(level, cfg.Log.Format)
	return cfg, nil
}

// loadConfigOrDefault is for the one-shot commands, which stay usable
// without a readable config file.
func loadConfigOrDefault(path string) *config.Config {
	cfg, err := loadConfig(path)
	if err != nil {
		appLog.Debug("using default config", "config_path", path, "reason", err.Error())
		cfg = config.DefaultConfig()
		cfg.ApplyEnv()
		cfg.Normalize()
	}
	return cfg
}

// signalContext is canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func newServeCommand(configPath *string) *cobra.Command {
	var (
		listen   string
		cacheDir string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				appLog.Error("failed to load config", err, "config_path", *configPath)
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			appLog.Info("dualcal starting", "version", version)
			appLog.Info("effective config",
				"listen", cfg.Listen,
				"timezone", cfg.Location().String(),
				"primary", cfg.Primary,
				"week_start", cfg.WeekStart,
				"refresh", cfg.RefreshCron,
				"ics_count", len(cfg.ICS),
				"basic_auth", cfg.BasicAuth != nil,
			)

			ctx, cancel := signalContext()
			defer cancel()

			store := ics.NewStore(ics.NewFetcher(cacheDir), ics.SourcesFromConfig(cfg.ICS), cfg.Location())
			sched, err := refresh.New(cfg.RefreshCron, store, cfg.Location())
			if err != nil {
				return err
			}
			go func() {
				if err := sched.Run(ctx); err != nil {
					appLog.Error("refresh scheduler exited", err)
				}
			}()

			err = web.NewServer(cfg, web.WithStore(store)).ListenAndServe(ctx)
			appLog.Info("dualcal exiting")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", defaultCacheDir, "directory for cached ICS feeds")
	return cmd
}

func newMonthCommand(configPath *string) *cobra.Command {
	var (
		primaryName string
		date        string
		withEvents  bool
		cacheDir    string
	)
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Print a month grid",
		Example: `  dualcal month
  dualcal month --primary jalali --date 1402/12/25
  dualcal month --events`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefault(*configPath)
			cals := cfg.Calendars()

			primary := cfg.PrimarySystem()
			if primaryName != "" {
				sys, err := calendar.ParseSystem(primaryName)
				if err != nil {
					return err
				}
				primary = sys
			}

			var opts []calendar.Option
			if date != "" {
				anchor, err := calendar.ParseDate(cals.For(primary), date)
				if err != nil {
					return err
				}
				opts = append(opts, calendar.WithAnchor(anchor))
			}
			view := calendar.NewNavigator(cals, primary, opts...).View()

			var events ics.DayIndex
			if withEvents {
				idx, err := fetchEvents(cmd.Context(), cfg, cacheDir, view)
				if err != nil {
					appLog.Error("some feeds failed", err)
				}
				events = idx
			}

			appLog.Debug("month rendered", "view", termview.Summary(view))
			fmt.Fprint(cmd.OutOrStdout(), termview.Render(view, events))
			return nil
		},
	}
	cmd.Flags().StringVar(&primaryName, "primary", "", "primary calendar: gregorian or jalali (default from config)")
	cmd.Flags().StringVar(&date, "date", "", "day to show, as YYYY/MM/DD in the primary calendar (default today)")
	cmd.Flags().BoolVar(&withEvents, "events", false, "fetch configured ICS feeds and mark their events")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", defaultCacheDir, "directory for cached ICS feeds")
	return cmd
}

// fetchEvents refreshes the configured feeds behind a spinner and
// buckets their occurrences by the view's days.
func fetchEvents(ctx context.Context, cfg *config.Config, cacheDir string, view calendar.View) (ics.DayIndex, error) {
	sources := ics.SourcesFromConfig(cfg.ICS)
	if len(sources) == 0 {
		return nil, nil
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Fetching calendars..."),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	store := ics.NewStore(ics.NewFetcher(cacheDir), sources, cfg.Location())
	refreshErr := store.Refresh(ctx)
	close(done)
	_ = bar.Finish()

	occ, err := store.Occurrences(view.Window.GridStart, view.Window.GridEnd)
	if err != nil {
		return nil, err
	}
	return ics.IndexDays(occ, termview.Days(view)), refreshErr
}

func newConvertCommand(configPath *string) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:     "convert DATE",
		Short:   "Convert a date between the Gregorian and Jalali calendars",
		Example: "  dualcal convert 2024-03-15\n  dualcal convert --from jalali 1402/12/25",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := calendar.ParseSystem(from)
			if err != nil {
				return err
			}
			cals := loadConfigOrDefault(*configPath).Calendars()

			day, err := calendar.ParseDate(cals.For(sys), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range []calendar.System{calendar.Gregorian, calendar.Jalali} {
				a := cals.For(s)
				f := a.Fields(day)
				fmt.Fprintf(out, "%-10s %s  %s  %s\n",
					s,
					termview.LocalizeDigits(a.Format(day, calendar.PatternNumeric), s),
					a.WeekdayNames()[f.Weekday],
					termview.LocalizeDigits(a.Format(day, calendar.PatternMonthYear), s),
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "gregorian", "calendar the DATE is written in")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "dualcal", version)
		},
	}
}
