package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/engine"
	"github.com/esinfra/converge/internal/logger"
	"github.com/esinfra/converge/internal/model"
	"github.com/esinfra/converge/internal/tui"
)

type applyOptions struct {
	ManifestPath   string
	DryRun         bool
	Verbose        bool
	NonInteractive bool
}

var applyCmdRunner = runApply

func newApplyCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Converge the host against a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DryRun = root.dryRun
			opts.Verbose = root.verbose
			opts.NonInteractive = !term.IsTerminal(int(os.Stdout.Fd()))

			return applyCmdRunner(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ManifestPath, "config", "c", "", "Path to manifest file")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runApply(opts applyOptions) error {
	manifest, err := config.ParseManifest(opts.ManifestPath)
	if err != nil {
		return err
	}

	// Ctrl+C in non-interactive mode arrives as SIGINT; in interactive mode
	// bubbletea owns the terminal and the signal surfaces as a key message,
	// so the TUI goroutine cancels the same context when it exits early.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	effectiveVerbose := opts.Verbose || manifest.Settings.Verbose
	level := "info"
	if effectiveVerbose {
		level = "debug"
	}

	log, err := logger.New(logger.Options{Level: level, HumanReadable: true})
	if err != nil {
		return err
	}

	modelState := tui.NewModel(manifest)
	interactive := !opts.NonInteractive

	var program *tea.Program
	var programErr error
	done := make(chan struct{})

	if interactive {
		program = tea.NewProgram(modelState)
		go func() {
			_, programErr = program.Run()
			// A program that exits before the run finished means the
			// operator interrupted; the reconciler stops before probing
			// the next resource.
			cancel()
			close(done)
		}()
	}

	r := engine.New(manifest, engine.Options{
		DryRun: opts.DryRun,
		Logger: log,
		OnStart: func(id string) {
			dispatchTuiMessage(interactive, program, &modelState, tui.ResourceStartMsg{ID: id, Time: time.Now()})
		},
		OnResult: func(res model.ResourceResult) {
			dispatchTuiMessage(interactive, program, &modelState, tui.ResourceCompleteMsg{Result: res})
		},
	})

	report, runErr := r.Run(ctx)
	dispatchTuiMessage(interactive, program, &modelState, tui.RunCompleteMsg{Report: report})

	if interactive {
		<-done
		if programErr != nil {
			return programErr
		}
	} else {
		fmt.Fprintln(os.Stdout, modelState.View())
	}

	if errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run cancelled")
	}
	if runErr != nil {
		return runErr
	}
	if report.ExitCode() != 0 {
		return fmt.Errorf("run failed")
	}

	return nil
}

func dispatchTuiMessage(interactive bool, program *tea.Program, state *tui.Model, msg tea.Msg) {
	if interactive {
		if program != nil {
			program.Send(msg)
		}
		return
	}

	updated, _ := state.Update(msg)
	if m, ok := updated.(tui.Model); ok {
		*state = m
	}
}
