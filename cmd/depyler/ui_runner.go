package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/paiml/depyler-sub011/internal/driver"
	"github.com/paiml/depyler-sub011/internal/ui"
)

type batchOutcome struct {
	report *driver.Report
	err    error
}

func runBatchWithUI(ctx context.Context, title string, files []string, opts driver.Options) (*driver.Report, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Sink = driver.ChannelSink{Ch: events}
		rep, err := driver.Run(ctx, files, optsCopy)
		outcomeCh <- batchOutcome{report: rep, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
