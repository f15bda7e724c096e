package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/MrWong99/voxgate/internal/wave"
	"github.com/MrWong99/voxgate/pkg/vad"
	"github.com/MrWong99/voxgate/pkg/vad/webrtc"
)

func runDetect(args []string) int {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	var (
		file      = fs.String("file", "", "path to a 16-bit PCM WAV file (required)")
		mode      = fs.String("mode", "very_aggressive", "detector mode: name or 0-3")
		frameMs   = fs.Int("frame-ms", 30, "frame duration in ms (10, 20 or 30)")
		speechMs  = fs.Int("speech-ms", 300, "continuous speech needed before a speech event")
		silenceMs = fs.Int("silence-ms", 600, "continuous silence needed before a noise event")
		level     = fs.Bool("level", false, "level-triggered events (re-fire while the condition holds)")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "voxgate detect: -file is required")
		fs.Usage()
		return 2
	}

	m, err := parseMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxgate detect: %v\n", err)
		return 2
	}

	f, err := wave.Load(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxgate detect: %v\n", err)
		return 1
	}

	cfg := vad.Config{
		SampleRate:        f.SampleRate,
		FrameSize:         f.SampleRate / 1000 * *frameMs,
		Mode:              m,
		SpeechDurationMs:  *speechMs,
		SilenceDurationMs: *silenceMs,
		LevelTriggered:    *level,
	}
	det, err := webrtc.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxgate detect: %v\n", err)
		return 1
	}
	defer det.Close()

	debounce := vad.NewDebouncer(cfg)
	frameSec := float64(*frameMs) / 1000

	var speechFrames, events int
	for i, frame := range f.Frames(cfg.FrameSize) {
		speech, err := det.IsSpeech(frame)
		if err != nil {
			fmt.Fprintf(os.Stderr, "voxgate detect: frame %d: %v\n", i, err)
			return 1
		}
		if speech {
			speechFrames++
		}

		line := fmt.Sprintf("frame %4d  t=%7.3fs  speech=%-5v", i, float64(i)*frameSec, speech)
		if ev := debounce.Observe(speech); ev != vad.EventNone {
			line += "  event=" + ev.String()
			events++
		}
		fmt.Println(line)
	}

	fmt.Printf("summary: %d frames, %d speech, %d events\n",
		len(f.Frames(cfg.FrameSize)), speechFrames, events)
	return 0
}

// parseMode accepts both the mode names used in config files and the bare
// numeric values 0-3.
func parseMode(s string) (vad.Mode, error) {
	if m, err := vad.ParseMode(s); err == nil {
		return m, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || !vad.Mode(n).IsValid() {
		return 0, errors.New("invalid mode " + strconv.Quote(s))
	}
	return vad.Mode(n), nil
}
