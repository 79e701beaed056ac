package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bastiangx/qacbox/internal/cli"
	"github.com/bastiangx/qacbox/internal/logger"
	"github.com/bastiangx/qacbox/internal/tui"
	"github.com/bastiangx/qacbox/pkg/config"
	"github.com/bastiangx/qacbox/pkg/document"
	"github.com/bastiangx/qacbox/pkg/lookup"
	"github.com/bastiangx/qacbox/pkg/widget"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var qidsFlag string

func init() {
	composeCmd.Flags().StringVar(&qidsFlag, "qids", "", `Identifiers of the mentions in the question, "Q1,Q2" or a JSON array`)
}

func newClient(ctx context.Context, c *config.Config) (lookup.Client, error) {
	switch c.Lookup.Transport {
	case config.TransportIPC:
		return lookup.StartIPC(ctx, c.Lookup.IPCCommand)
	default:
		return lookup.NewHTTPClient(c.Lookup.Endpoint, c.Lookup.Timeout()), nil
	}
}

func widgetOptions(c *config.Config, l *log.Logger) widget.Options {
	return widget.Options{
		Limit:       c.Lookup.Limit,
		MaxQueryLen: c.Widget.MaxQueryLen,
		Logger:      l,
	}
}

func runCompose(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// The terminal belongs to the TUI; logs go to a file in debug mode.
	logOut := io.Discard
	if debugMode {
		path := filepath.Join(os.TempDir(), "qacbox.log")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		logOut = f
		fmt.Fprintf(os.Stderr, "logging to %s\n", path)
	}
	log.SetOutput(logOut)
	defer log.SetOutput(os.Stderr)

	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	flat := ""
	if len(args) > 0 {
		flat = args[0]
	}
	refs := document.RefsFrom(document.ParseIDList(qidsFlag), nil)
	w := widget.New(flat, refs, widgetOptions(cfg, logger.NewTo(logOut, "widget")))

	model := tui.New(w, client, tui.Options{
		Timeout:  cfg.Lookup.Timeout(),
		Debounce: cfg.Widget.Debounce(),
		Logger:   logger.NewTo(logOut, "tui"),
	})
	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx)).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return fmt.Errorf("compose: %w", err)
	}

	if s, ok := final.(tui.Model).Submitted(); ok {
		fmt.Println(s.Question)
		if len(s.QIDs) > 0 {
			fmt.Println(strings.Join(s.QIDs, ","))
		}
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	log.SetReportTimestamp(false)
	log.Debug("Input info:", "transport", cfg.Lookup.Transport, "limit", cfg.Lookup.Limit, "noFilter", noFilter)

	newWidget := func() *widget.Widget {
		return widget.New("", nil, widgetOptions(cfg, nil))
	}
	h := cli.NewInputHandler(newWidget, client, cfg.Lookup.Timeout(), noFilter, os.Stdin, os.Stdout)
	if _, err := h.Start(ctx); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return nil
}
