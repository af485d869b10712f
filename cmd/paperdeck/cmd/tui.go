package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/paperdeck/paperdeck/internal/consume"
	"github.com/paperdeck/paperdeck/internal/controller"
	"github.com/paperdeck/paperdeck/internal/doclist"
	"github.com/paperdeck/paperdeck/internal/events"
	"github.com/paperdeck/paperdeck/internal/routing"
	"github.com/paperdeck/paperdeck/internal/store"
	"github.com/paperdeck/paperdeck/internal/tui"
	"github.com/paperdeck/paperdeck/internal/views"
)

var tuiNoConsume bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal UI",
	Long: `Open an interactive terminal UI for browsing your documents.

Navigation:
  ↑/k, ↓/j    Move up/down
  Enter       Open document
  Esc         Clear selection / clear filter

Filtering:
  /           Full-text filter
  t, c, d     Filter by the current document's tags / correspondent / type
  m           More documents like the current one
  o           Cycle sort order

Saved views:
  v           Open the saved-view picker
  s           Save changes to the active view
  S           Save the current filter as a new view

Selection:
  Space       Toggle selection
  V           Extend selection to cursor

The consume directory keeps being scanned while the TUI is open; newly
imported documents appear without losing your filter or selection.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().BoolVar(&tuiNoConsume, "no-consume", false, "Disable consume-directory scanning while the TUI runs")
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("the TUI requires an interactive terminal")
	}

	s, err := store.Open(cfg.Data.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()

	if err := s.InitSchema(); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	viewSvc := views.NewService(s, logger)
	list := doclist.NewList(s, logger)
	router := routing.NewRouter()
	editor := tui.NewEditor(s)
	notices := tui.NewNotices(logger)

	// Deferred controller work is routed back through the program loop so
	// every state mutation happens on the TUI goroutine.
	var program *tea.Program
	ctrl := controller.New(controller.Options{
		List:   list,
		Views:  viewSvc,
		Nav:    router,
		Editor: editor,
		Routes: router,
		Notify: notices,
		Logger: logger,
		Async: func(fn func()) {
			program.Send(tui.ApplyMsg{Fn: fn})
		},
	})
	defer ctrl.Close()

	model := tui.New(tui.Options{
		List:       list,
		Controller: ctrl,
		Views:      viewSvc,
		Router:     router,
		Editor:     editor,
		Docs:       s,
		Notices:    notices,
		Version:    Version,
	})
	program = tea.NewProgram(model, tea.WithAltScreen())

	if !tuiNoConsume {
		consumed := events.NewSignal()
		// The consumer's first scan runs before program.Run, so the
		// signal must be forwarded without blocking on the program.
		cancel := tui.ForwardConsumption(program, consumed)
		defer cancel()

		consumer := consume.New(cfg.Consume.Dir, s, consumed, logger)
		if err := consumer.Start(cfg.Consume.Schedule); err != nil {
			return fmt.Errorf("start consumer: %w", err)
		}
		defer func() { <-consumer.Stop().Done() }()
	}

	ctrl.Start(router)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
