package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/voxgate/pkg/vad"
	"github.com/MrWong99/voxgate/pkg/vad/webrtc"
)

// startTimeout bounds how long a client may take to send its start message
// after the websocket handshake.
const startTimeout = 10 * time.Second

// Codec names accepted in the start message.
const (
	codecPCM16 = "pcm16"
	codecOpus  = "opus"
)

// startMessage opens a stream session. Zero-valued fields fall back to the
// server's configured detector defaults.
type startMessage struct {
	Type              string `json:"type"`
	SampleRate        int    `json:"sample_rate"`
	FrameSize         int    `json:"frame_size"`
	Mode              string `json:"mode"`
	SpeechDurationMs  int    `json:"speech_duration_ms"`
	SilenceDurationMs int    `json:"silence_duration_ms"`
	LevelTriggered    *bool  `json:"level_triggered"`
	Codec             string `json:"codec"`
}

// readyMessage confirms the session parameters actually in effect.
type readyMessage struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sample_rate"`
	FrameSize  int    `json:"frame_size"`
	Mode       string `json:"mode"`
	Codec      string `json:"codec"`
}

// resultMessage reports the classification of a single frame. Event is set
// only on the frame where the debouncer fires.
type resultMessage struct {
	Type   string `json:"type"`
	Frame  uint64 `json:"frame"`
	Speech bool   `json:"speech"`
	Event  string `json:"event,omitempty"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// session is the per-connection state of one stream. Frames are processed
// serially by the connection's read loop, so no locking is needed.
type session struct {
	srv  *Server
	conn *websocket.Conn

	cfg      vad.Config
	det      *webrtc.Detector
	debounce *vad.Debouncer
	opus     *opusDecoder

	frames uint64
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("stream: accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	if s.cfg.Server.ReadLimitBytes > 0 {
		conn.SetReadLimit(s.cfg.Server.ReadLimitBytes)
	}

	ctx := r.Context()
	sess, err := s.newSession(ctx, conn)
	if err != nil {
		s.log.Warn("stream: rejected", "err", err)
		writeJSONMessage(ctx, conn, errorMessage{Type: "error", Message: err.Error()})
		conn.Close(websocket.StatusPolicyViolation, "invalid start message")
		return
	}
	defer sess.det.Close()

	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(ctx, 1)
		defer s.metrics.ActiveSessions.Add(ctx, -1)
	}

	s.log.Info("stream: session started",
		"sample_rate", sess.cfg.SampleRate,
		"frame_size", sess.cfg.FrameSize,
		"mode", sess.cfg.Mode,
		"codec", sess.codec())

	err = sess.run(ctx)
	status := websocket.CloseStatus(err)
	if err != nil && status == -1 && ctx.Err() == nil {
		s.log.Warn("stream: session ended", "err", err, "frames", sess.frames)
		return
	}
	s.log.Info("stream: session closed", "frames", sess.frames, "status", status)
}

// newSession reads and validates the start message and builds the
// per-connection detector.
func (s *Server) newSession(ctx context.Context, conn *websocket.Conn) (*session, error) {
	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	typ, data, err := conn.Read(startCtx)
	if err != nil {
		return nil, fmt.Errorf("read start message: %w", err)
	}
	if typ != websocket.MessageText {
		return nil, errors.New("start message must be a text frame")
	}

	var start startMessage
	if err := json.Unmarshal(data, &start); err != nil {
		return nil, fmt.Errorf("decode start message: %w", err)
	}
	if start.Type != "start" {
		return nil, fmt.Errorf("expected start message, got %q", start.Type)
	}

	cfg, err := s.detectorConfig(&start)
	if err != nil {
		return nil, err
	}

	sess := &session{srv: s, conn: conn, cfg: cfg}

	switch start.Codec {
	case "", codecPCM16:
	case codecOpus:
		sess.opus, err = newOpusDecoder(cfg.SampleRate, cfg.FrameSize)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown codec %q", start.Codec)
	}

	sess.det, err = webrtc.New(cfg)
	if err != nil {
		return nil, err
	}
	sess.debounce = vad.NewDebouncer(cfg)

	ready := readyMessage{
		Type:       "ready",
		SampleRate: cfg.SampleRate,
		FrameSize:  cfg.FrameSize,
		Mode:       cfg.Mode.String(),
		Codec:      sess.codec(),
	}
	if err := writeJSONMessage(ctx, conn, ready); err != nil {
		sess.det.Close()
		return nil, fmt.Errorf("write ready message: %w", err)
	}
	return sess, nil
}

func (sess *session) codec() string {
	if sess.opus != nil {
		return codecOpus
	}
	return codecPCM16
}

// run processes frames until the client closes the connection or the
// context is cancelled. Malformed frames are reported back to the client
// but do not end the session.
func (sess *session) run(ctx context.Context) error {
	for {
		typ, data, err := sess.conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageBinary {
			return sess.conn.Close(websocket.StatusUnsupportedData, "expected binary audio frames")
		}

		res, err := sess.processFrame(ctx, data)
		if err != nil {
			if sess.srv.metrics != nil {
				sess.srv.metrics.FrameErrors.Add(ctx, 1)
			}
			msg := errorMessage{Type: "error", Message: err.Error()}
			if werr := writeJSONMessage(ctx, sess.conn, msg); werr != nil {
				return werr
			}
			continue
		}

		if err := writeJSONMessage(ctx, sess.conn, res); err != nil {
			return err
		}
	}
}

// processFrame decodes one binary message into PCM samples, classifies it
// and advances the debouncer.
func (sess *session) processFrame(ctx context.Context, data []byte) (resultMessage, error) {
	var (
		samples []int16
		err     error
	)
	if sess.opus != nil {
		samples, err = sess.opus.decode(data)
	} else {
		samples, err = vad.BytesToSamples(data)
	}
	if err != nil {
		return resultMessage{}, err
	}

	start := time.Now()
	speech, err := sess.det.IsSpeech(samples)
	if err != nil {
		return resultMessage{}, err
	}
	event := sess.debounce.Observe(speech)
	sess.frames++

	if m := sess.srv.metrics; m != nil {
		m.RecordFrame(ctx, speech, time.Since(start).Seconds())
		if event != vad.EventNone {
			m.RecordEvent(ctx, event.String())
		}
	}

	res := resultMessage{Type: "result", Frame: sess.frames, Speech: speech}
	if event != vad.EventNone {
		res.Event = event.String()
	}
	return res, nil
}

// writeJSONMessage marshals v and sends it as a single text frame.
func writeJSONMessage(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("server: marshal: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
