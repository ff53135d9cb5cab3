package connect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/endorses/gridsync/internal/pkg/cmdutil"
	"github.com/endorses/gridsync/internal/pkg/constants"
	"github.com/endorses/gridsync/internal/pkg/logger"
	"github.com/endorses/gridsync/internal/pkg/metrics"
	"github.com/endorses/gridsync/internal/pkg/output"
	"github.com/endorses/gridsync/internal/pkg/session"
	"github.com/endorses/gridsync/internal/pkg/signals"
	"github.com/endorses/gridsync/internal/pkg/tableadapter"
	"github.com/endorses/gridsync/internal/pkg/tui"
	"github.com/endorses/gridsync/internal/pkg/tui/themes"
)

var ConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a table UI server",
	Long: `Join a UI session on a server and show the tables it creates.

The first table the server creates is shown, or the one given with --table.
Without a terminal on stdout the session runs headless and logs its state.

Examples:
  gridsync connect --url https://app.example.com/json --ui-session-id 1:abc
  gridsync connect --url http://localhost:8080/json --ui-session-id 1:abc --metrics-port 9090 --headless`,
	RunE: runConnect,
}

var (
	serverURL   string
	uiSessionID string
	tableID     string
	noPolling   bool
	metricsPort int
	headless    bool
	themeName   string
)

type settings struct {
	url         string
	uiSessionID string
	tableID     string
	polling     bool
	metricsPort int
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	cleanup := signals.SetupHandler(ctx, cancel)
	defer cleanup()

	if !headless && output.IsTerminal(os.Stdout) {
		return runInteractive(ctx, cfg)
	}
	return runHeadless(ctx, cfg)
}

func resolveSettings(cmd *cobra.Command) (settings, error) {
	cfg := settings{
		url:         cmdutil.GetStringConfig("connect.url", serverURL),
		uiSessionID: cmdutil.GetStringConfig("connect.ui_session_id", uiSessionID),
		tableID:     cmdutil.GetStringConfig("connect.table", tableID),
		polling:     !noPolling && viper.GetBool("connect.polling"),
		metricsPort: cmdutil.GetIntConfig(cmd, "metrics-port", "connect.metrics_port"),
	}
	if err := cmdutil.RequireString("url", "connect.url", cfg.url); err != nil {
		return cfg, err
	}
	if err := cmdutil.RequireString("ui-session-id", "connect.ui_session_id", cfg.uiSessionID); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runInteractive(ctx context.Context, cfg settings) error {
	ring := logger.CaptureToRing(constants.LogRingCapacity, slog.LevelInfo)
	defer logger.Enable()

	m, stopMetrics := startMetrics(cfg.metricsPort)
	defer stopMetrics()

	fwd := tui.NewForwarder()
	pick := tablePicker(cfg.tableID)
	s := newSession(cfg, session.Options{Presenter: tui.NewPresenter(fwd.Send)}, tableadapter.Config{
		Dispatch: fwd.Dispatch,
		Metrics:  m,
		OnCreate: func(a *tableadapter.Adapter) {
			if pick(a.ID()) {
				fwd.Send(tui.TableMsg{Title: a.ID(), Table: a.Table()})
			}
		},
		OnError: func(err error) {
			logger.Error("Failed to apply server changes", "error", err)
		},
	})

	model := tui.NewModel(nil, tui.Options{
		Title:       cfg.url,
		Theme:       themes.GetTheme(cmdutil.GetStringConfig("tui.theme", themeName)),
		Ring:        ring,
		Placeholder: fmt.Sprintf("Connecting to %s...", cfg.url),
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	go fwd.Run(ctx, p.Send)

	s.Start(ctx)
	defer s.Stop()
	go func() {
		select {
		case <-s.Done():
			p.Quit()
		case <-ctx.Done():
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run table view: %w", err)
	}
	return nil
}

func runHeadless(ctx context.Context, cfg settings) error {
	m, stopMetrics := startMetrics(cfg.metricsPort)
	defer stopMetrics()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// Written on the session loop before cancel, read after ctx is done
	var fatal *session.FatalMessage
	presenter := session.LogPresenter{OnFatal: func(msg session.FatalMessage) {
		fatal = &msg
		cancel()
	}}

	s := newSession(cfg, session.Options{Presenter: presenter}, tableadapter.Config{
		Dispatch: tableadapter.Sync,
		Metrics:  m,
		OnCreate: func(a *tableadapter.Adapter) {
			t := a.Table()
			logger.Info("Table created",
				"id", a.ID(),
				"columns", len(t.Columns()),
				"rows", t.RowCount())
		},
		OnError: func(err error) {
			logger.Error("Failed to apply server changes", "error", err)
		},
	})

	logger.Info("Connecting", "url", cfg.url, "ui_session_id", cfg.uiSessionID, "polling", cfg.polling)
	s.Start(ctx)
	select {
	case <-ctx.Done():
	case <-s.Done():
		logger.Info("Session ended")
	}
	s.Stop()
	if fatal != nil {
		return fmt.Errorf("server error %d: %s", fatal.Code, fatal.Header)
	}
	return nil
}

func newSession(cfg settings, opts session.Options, tables tableadapter.Config) *session.Session {
	opts.UISessionID = cfg.uiSessionID
	opts.DisablePolling = !cfg.polling
	opts.Recorder = tables.Metrics
	opts.Factories = map[string]session.FactoryFunc{
		tableadapter.ObjectType: tableadapter.Factory(tables),
	}
	opts.OnInitialized = func(desktop session.Adapter) {
		logger.Info("Session initialized", "desktop", desktop != nil)
	}
	return session.New(session.NewHTTPTransport(cfg.url, nil), opts)
}

// tablePicker returns whether a created table should be shown. Without an
// id only the first table is shown. It is called on the session loop.
func tablePicker(id string) func(adapterID string) bool {
	shown := false
	return func(adapterID string) bool {
		if id != "" {
			return adapterID == id
		}
		if shown {
			return false
		}
		shown = true
		return true
	}
}

// startMetrics serves metrics on port when it is set. Metrics are recorded
// either way.
func startMetrics(port int) (*metrics.Metrics, func()) {
	if port <= 0 {
		return metrics.NewMetrics(prometheus.NewRegistry()), func() {}
	}
	exporter := metrics.NewExporter(port)
	m := metrics.NewMetrics(exporter.Registry())
	if err := exporter.Enable(); err != nil {
		logger.Error("Failed to start metrics server", "port", port, "error", err)
	}
	return m, func() {
		if err := exporter.Disable(); err != nil {
			logger.Error("Failed to stop metrics server", "error", err)
		}
	}
}

func init() {
	ConnectCmd.Flags().StringVar(&serverURL, "url", "", "server endpoint receiving session requests")
	ConnectCmd.Flags().StringVar(&uiSessionID, "ui-session-id", "", "UI session to join")
	ConnectCmd.Flags().StringVar(&tableID, "table", "", "adapter id of the table to show (default: first table created)")
	ConnectCmd.Flags().BoolVar(&noPolling, "no-polling", false, "disable background job polling")
	ConnectCmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")
	ConnectCmd.Flags().BoolVar(&headless, "headless", false, "log session state instead of showing the table view")
	ConnectCmd.Flags().StringVar(&themeName, "theme", "", "color theme: 'solarized', 'light', 'mono' (default from config)")
}
