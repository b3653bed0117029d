package main

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"droneops-dispatch/internal/config"
	"droneops-dispatch/internal/sim"
)

// Output modes for the console writer.
const (
	outputAuto  = "auto"
	outputTUI   = "tui"
	outputJSON  = "json"
	outputColor = "color"
	outputNone  = "none"
)

type writerOptions struct {
	printOnly bool
	output    string
	logFile   string
	extra     []sim.PositionWriter
}

// newWriters builds the writer chain from flags and env vars: a console
// writer (or GreptimeDB when GREPTIMEDB_ENDPOINT is set), NATS when NATS_URL
// is set, Redis when REDIS_ADDR is set, and an optional JSONL log file.
func newWriters(cfg *config.Config, opts writerOptions, log *slog.Logger) (*sim.MultiWriter, error) {
	var ws []sim.PositionWriter
	fail := func(err error) (*sim.MultiWriter, error) {
		_ = sim.NewMultiWriter(ws...).Close()
		return nil, err
	}

	base, err := baseWriter(cfg, opts, log)
	if err != nil {
		return fail(err)
	}
	ws = append(ws, base)

	if url := os.Getenv("NATS_URL"); url != "" {
		nw, err := sim.NewNATSWriter(url)
		if err != nil {
			return fail(err)
		}
		log.Info("publishing to NATS", "url", url)
		ws = append(ws, nw)
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rw, err := sim.NewRedisStateWriter(addr)
		if err != nil {
			return fail(err)
		}
		log.Info("caching state in Redis", "addr", addr)
		ws = append(ws, rw)
	}
	if opts.logFile != "" {
		fw, err := sim.NewFileWriter(sim.LogFilePaths(opts.logFile))
		if err != nil {
			return fail(err)
		}
		ws = append(ws, fw)
	}
	ws = append(ws, opts.extra...)
	return sim.NewMultiWriter(ws...), nil
}

// baseWriter chooses GreptimeDB or a console writer.
func baseWriter(cfg *config.Config, opts writerOptions, log *slog.Logger) (sim.PositionWriter, error) {
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if !opts.printOnly && endpoint != "" {
		db := envOr("GREPTIMEDB_DATABASE", "public")
		w, err := sim.NewGreptimeDBWriter(endpoint, db, log)
		if err != nil {
			return nil, err
		}
		log.Info("writing to GreptimeDB", "endpoint", endpoint, "database", db)
		return w, nil
	}
	switch opts.output {
	case outputAuto, "":
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return sim.NewTUIWriter(cfg), nil
		}
		return sim.NewJSONStdoutWriter(), nil
	case outputTUI:
		return sim.NewTUIWriter(cfg), nil
	case outputJSON:
		return sim.NewJSONStdoutWriter(), nil
	case outputColor:
		return sim.NewColorStdoutWriter(cfg), nil
	case outputNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown output %q (auto, tui, json, color, none)", opts.output)
	}
}
