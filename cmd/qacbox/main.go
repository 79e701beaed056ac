// Copyright 2025 The qacbox Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements qacbox, an entity aware question composer with its
completion backend.

A question is typed as free text; completions propose the same question with
entity mentions resolved to knowledge base identifiers. Confirmed entities
stay bound to their identifier until their text is edited.

# Usage

Serve completions over HTTP from a data directory with aliases.tsv and
entities.tsv:

	qacbox serve --data /srv/qac

Serve the same completions as msgpack over stdin/stdout:

	qacbox ipc --data /srv/qac

Compose a question in the terminal against a running server:

	qacbox compose

Or drive the widget line by line for debugging:

	qacbox query --debug

# Data

The aliases file has one alias per line: alias, identifier and frequency,
tab separated. The entities file adds a title, an image and an abstract per
identifier:

	Marie Curie	Q7186	900
	Q7186	Marie Curie	https://...	Polish and naturalised-French physicist...

# Configuration

A TOML file is created with defaults if it doesn't exist. serve and ipc watch
it and apply new [server] limits and [index] files without a restart:

	[lookup]
	transport = "http"
	endpoint = "http://localhost:8181"

	[server]
	listen = ":8181"
	max_limit = 64
	rate_per_sec = 50

See pkg/config for every option.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.1.0-beta"
	AppName = "qacbox"
	gh      = "https://github.com/bastiangx/qacbox"
)

// sigContext is cancelled on SIGINT or SIGTERM. A second signal exits at once.
func sigContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx, cancel
}

func main() {
	ctx, cancel := sigContext()
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func showVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ qacbox ] Questions with entities, completed as you type")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available commands")
	logger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(mode, dataDir string, stats map[string]int) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	log.Infof("%s %s (%s)", AppName, Version, mode)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("data dir: ( %s )", dataDir)
	log.Info("index", "aliases", stats["aliases"], "entities", stats["entities"])
	log.Info("status: ready")

	log.SetLevel(currentLevel)
}
