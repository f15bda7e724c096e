package vad

// Debouncer turns the noisy per-frame speech/noise booleans into stable
// events by requiring a minimum run of same-class frames before firing.
// Short pauses inside an utterance and short noise bursts are absorbed.
//
// Two mutually exclusive counters track consecutive frames of each class.
// Observing a frame of one class immediately zeroes the other class's
// counter. A counter that climbs strictly above its threshold fires the
// corresponding event and — under the default edge-triggered policy — resets
// to zero, so a run of N same-class frames with threshold k fires exactly
// floor(N/(k+1)) events. The level-triggered policy instead pins the counter
// at the threshold and fires on every subsequent frame of that class.
//
// A Debouncer is not safe for concurrent use; it belongs to exactly one
// detector or stream.
type Debouncer struct {
	speechFrames  int
	silenceFrames int

	maxSpeechFrames  int
	maxSilenceFrames int

	levelTriggered bool
}

// NewDebouncer derives the frame thresholds from the configured durations.
// A zero duration gives a zero threshold, meaning every frame of that class
// fires an event.
func NewDebouncer(cfg Config) *Debouncer {
	return &Debouncer{
		maxSpeechFrames:  FrameCount(cfg.SampleRate, cfg.FrameSize, cfg.SpeechDurationMs),
		maxSilenceFrames: FrameCount(cfg.SampleRate, cfg.FrameSize, cfg.SilenceDurationMs),
		levelTriggered:   cfg.LevelTriggered,
	}
}

// Observe feeds one raw frame decision into the machine and returns the event
// for that frame, if any.
func (d *Debouncer) Observe(isSpeech bool) Event {
	if isSpeech {
		d.silenceFrames = 0
		d.speechFrames++
		if d.speechFrames > d.maxSpeechFrames {
			if d.levelTriggered {
				d.speechFrames = d.maxSpeechFrames
			} else {
				d.speechFrames = 0
			}
			return EventSpeechDetected
		}
		return EventNone
	}

	d.speechFrames = 0
	d.silenceFrames++
	if d.silenceFrames > d.maxSilenceFrames {
		if d.levelTriggered {
			d.silenceFrames = d.maxSilenceFrames
		} else {
			d.silenceFrames = 0
		}
		return EventNoiseDetected
	}
	return EventNone
}

// Reset zeroes both counters. Used when an audio stream restarts so stale
// runs do not leak into the new segment.
func (d *Debouncer) Reset() {
	d.speechFrames = 0
	d.silenceFrames = 0
}

// SpeechThreshold returns the speech frame threshold (frames, not ms).
func (d *Debouncer) SpeechThreshold() int { return d.maxSpeechFrames }

// SilenceThreshold returns the silence frame threshold.
func (d *Debouncer) SilenceThreshold() int { return d.maxSilenceFrames }
