// Command voxgate classifies voice activity in PCM audio. It runs either as
// a one-shot CLI over WAV files (detect, analyze) or as a websocket
// streaming server (serve).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MrWong99/voxgate/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}
	switch args[0] {
	case "detect":
		return runDetect(args[1:])
	case "analyze":
		return runAnalyze(args[1:])
	case "serve":
		return runServe(args[1:])
	case "help", "-h", "--help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "voxgate: unknown command %q\n\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: voxgate <command> [flags]

Commands:
  detect    classify a WAV file frame by frame and print decisions and events
  analyze   print per-frame signal diagnostics (RMS, dominant frequency, periodicity)
  serve     run the websocket streaming server

Run "voxgate <command> -h" for the flags of a command.
`)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
