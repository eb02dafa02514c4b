// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/lanternworks/lantern/lib/config"
	"github.com/lanternworks/lantern/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lantern-relay: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		defaultLevel string
		defaultTag   string
		parsePrefix  bool
	)

	flagSet := pflag.NewFlagSet("lantern-relay", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "pipeline configuration file (.yaml, .yml, .json, or .jsonc)")
	flagSet.StringVar(&defaultLevel, "level", "info", "level for lines without a level prefix")
	flagSet.StringVar(&defaultTag, "tag", "", "tag for lines without a tag prefix")
	flagSet.BoolVar(&parsePrefix, "parse-prefix", true, `recognize a "LEVEL [Tag]" line prefix`)

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}

	fallbackLevel, err := pipeline.ParseLevel(defaultLevel)
	if err != nil {
		return fmt.Errorf("--level: %w", err)
	}
	fallbackTag := pipeline.ParseTag(defaultTag)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	manager, err := cfg.Build(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drive the drain loop off the real clock while this goroutine
	// blocks on stdin.
	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		manager.Run(ctx)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for scanner.Scan() {
		level, tag, text := parseLine(scanner.Text(), fallbackLevel, fallbackTag, parsePrefix)
		manager.Log(level, tag, text)
		if ctx.Err() != nil {
			break
		}
	}
	scanErr := scanner.Err()

	stop()
	<-drainDone
	if err := manager.Close(); err != nil {
		logger.Warn("pipeline close reported errors", "error", err)
	}

	stats := manager.Stats()
	logger.Info("relay finished",
		"enqueued", stats.Enqueued,
		"dispatched", stats.Dispatched,
		"capacity_drops", stats.CapacityDrops,
		"level_drops", stats.ProducerLevelDrops+stats.LevelDrops,
	)
	return scanErr
}

// parseLine extracts an optional "LEVEL [Tag]" prefix from one input
// line. Either part may appear alone; unrecognized prefixes leave the
// line untouched with the fallback level and tag:
//
//	"ERROR [Audio] device lost"  → error,  Audio,    "device lost"
//	"warning low disk"           → warning, fallback, "low disk"
//	"[Physics] solver diverged"  → fallback, Physics, "solver diverged"
//	"plain text"                 → fallback, fallback, "plain text"
func parseLine(line string, fallbackLevel pipeline.Level, fallbackTag pipeline.Tag, parsePrefix bool) (pipeline.Level, pipeline.Tag, string) {
	level := fallbackLevel
	tag := fallbackTag
	if !parsePrefix {
		return level, tag, line
	}

	rest := line
	if head, tail, ok := splitToken(rest); ok {
		if parsed, err := pipeline.ParseLevel(strings.TrimSuffix(head, ":")); err == nil {
			level = parsed
			rest = tail
		}
	}
	if head, tail, ok := splitToken(rest); ok {
		if len(head) > 2 && head[0] == '[' && head[len(head)-1] == ']' {
			tag = pipeline.ParseTag(head[1 : len(head)-1])
			rest = tail
		}
	}
	return level, tag, rest
}

// splitToken splits off the first space-delimited token. Returns
// false for an empty line.
func splitToken(line string) (head, tail string, ok bool) {
	trimmed := strings.TrimLeft(line, " ")
	if trimmed == "" {
		return "", "", false
	}
	if i := strings.IndexByte(trimmed, ' '); i >= 0 {
		return trimmed[:i], strings.TrimLeft(trimmed[i+1:], " "), true
	}
	return trimmed, "", true
}
