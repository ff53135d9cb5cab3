package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/endorses/gridsync/internal/pkg/cmdutil"
	"github.com/endorses/gridsync/internal/pkg/constants"
	"github.com/endorses/gridsync/internal/pkg/logger"
	"github.com/endorses/gridsync/internal/pkg/signals"
	"github.com/endorses/gridsync/internal/pkg/table"
	"github.com/endorses/gridsync/internal/pkg/tablefile"
	"github.com/endorses/gridsync/internal/pkg/tui"
	"github.com/endorses/gridsync/internal/pkg/tui/themes"
)

var ViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show a table file in the terminal",
	Long: `Open a YAML table file in the interactive table view.

Sorting, grouping, filtering and checking work locally. Press w to write
the table back to the file. SIGHUP reloads the file.

Examples:
  gridsync view -f table.yaml
  gridsync view -f table.yaml --theme mono --virtual=false`,
	RunE: runView,
}

var (
	filePath  string
	virtual   bool
	rowHeight int
	themeName string
)

func runView(cmd *cobra.Command, args []string) error {
	path := cmdutil.GetStringConfig("view.file", filePath)
	if err := cmdutil.RequireString("file", "view.file", path); err != nil {
		return err
	}

	opts := tableOptions(cmd)
	f, t, err := load(path, opts)
	if err != nil {
		return err
	}

	// The UI owns stdout; the status line shows the latest log entry
	ring := logger.CaptureToRing(constants.LogRingCapacity, slog.LevelInfo)
	defer logger.Enable()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	cleanup := signals.SetupHandler(ctx, cancel)
	defer cleanup()

	fwd := tui.NewForwarder()
	model := tui.NewModel(t, tui.Options{
		Title: f.Title,
		Theme: themes.GetTheme(cmdutil.GetStringConfig("tui.theme", themeName)),
		Ring:  ring,
		Save:  saver(path, f.Title),
	})

	stopReload := signals.OnReload(ctx, func() {
		nf, nt, err := load(path, opts)
		if err != nil {
			logger.Error("Failed to reload table file", "path", path, "error", err)
			return
		}
		logger.Info("Reloaded table file", "path", path, "rows", nt.RowCount())
		fwd.Send(tui.TableMsg{Title: nf.Title, Table: nt})
	})
	defer stopReload()

	watchConfig(cmd, fwd)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	go fwd.Run(ctx, p.Send)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run table view: %w", err)
	}
	return nil
}

func load(path string, opts table.Options) (*tablefile.File, *table.Table, error) {
	f, err := tablefile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	t, err := f.Table(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	return f, t, nil
}

func tableOptions(cmd *cobra.Command) table.Options {
	opts := table.DefaultOptions()
	opts.Virtual = cmdutil.GetBoolConfig(cmd, "virtual", "tui.virtual")
	opts.RowHeight = max(cmdutil.GetIntConfig(cmd, "row-height", "tui.row_height"), 1)
	return opts
}

// saver snapshots the table on the UI goroutine and writes it in the background
func saver(path, title string) func(t *table.Table) func() error {
	return func(t *table.Table) func() error {
		snapshot := tablefile.FromTable(title, t)
		return func() error {
			if err := tablefile.Save(path, snapshot); err != nil {
				logger.Error("Failed to save table file", "path", path, "error", err)
				return err
			}
			logger.Info("Saved table file", "path", path)
			return nil
		}
	}
}

// watchConfig re-applies theme and viewport settings when the config file
// changes. Flags given on the command line keep their values.
func watchConfig(cmd *cobra.Command, fwd *tui.Forwarder) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		logger.Info("Config file changed", "file", e.Name)
		fwd.Send(tui.ThemeMsg{Theme: themes.GetTheme(cmdutil.GetStringConfig("tui.theme", themeName))})
		opts := tableOptions(cmd)
		fwd.Send(tui.ViewOptionsMsg{Virtual: opts.Virtual, RowHeight: opts.RowHeight})
	})
	viper.WatchConfig()
}

func init() {
	ViewCmd.Flags().StringVarP(&filePath, "file", "f", "", "table file to show (YAML)")
	ViewCmd.Flags().BoolVar(&virtual, "virtual", true, "render only the rows around the visible area")
	ViewCmd.Flags().IntVar(&rowHeight, "row-height", 1, "height in lines assumed for rows not yet rendered")
	ViewCmd.Flags().StringVar(&themeName, "theme", "", "color theme: 'solarized', 'light', 'mono' (default from config)")
}
