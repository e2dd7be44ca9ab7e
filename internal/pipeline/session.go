package pipeline

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"lookout/internal/alerting"
	"lookout/internal/imaging"
	"lookout/internal/watchlist"
)

// DefaultFrameInterval is how often the session samples a frame from the
// gate when no interval is configured.
const DefaultFrameInterval = 1000 * time.Millisecond

const subscriptionBuffer = 3

// SessionConfig shapes one monitoring session.
type SessionConfig struct {
	FrameInterval time.Duration
	JPEGQuality   int

	// Rotation is the capture source's orientation hint in degrees
	// clockwise, applied to every frame before analysis.
	Rotation int
}

// SessionStats is a snapshot of the session counters.
type SessionStats struct {
	FramesSampled uint64 `json:"frames_sampled"`
	FramesSkipped uint64 `json:"frames_skipped"`
	FrameErrors   uint64 `json:"frame_errors"`
	AlertsSent    uint64 `json:"alerts_sent"`
}

// Session runs one monitoring session: it samples the newest captured
// frame at a fixed interval, scores it against the watchlist snapshot,
// feeds the result through the alert decider, and delivers any emitted
// alert. The watchlist snapshot and decider state belong to this session
// alone; starting a new session starts from scratch.
type Session struct {
	cfg      SessionConfig
	provider FrameProvider
	matcher  *watchlist.Matcher
	decider  *alerting.Decider
	notifier alerting.Notifier
	logs     *alerting.LogStore
	bus      *EventBus

	gate FrameGate
	sub  *Subscription

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	running  atomic.Bool

	framesSampled atomic.Uint64
	framesSkipped atomic.Uint64
	frameErrors   atomic.Uint64
	alertsSent    atomic.Uint64
}

// NewSession wires a session together. logs may be nil to skip persistence.
func NewSession(cfg SessionConfig, provider FrameProvider, matcher *watchlist.Matcher, decider *alerting.Decider, notifier alerting.Notifier, logs *alerting.LogStore, bus *EventBus) *Session {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 80
	}
	return &Session{
		cfg:      cfg,
		provider: provider,
		matcher:  matcher,
		decider:  decider,
		notifier: notifier,
		logs:     logs,
		bus:      bus,
	}
}

// Start subscribes to the frame provider and launches the sampling loop.
func (s *Session) Start() error {
	if s.running.Load() {
		return fmt.Errorf("session already running")
	}

	s.sub = s.provider.Subscribe(subscriptionBuffer)
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.running.Store(true)

	go s.run()
	log.Printf("[Session] Started (%s mode, sampling every %s)", s.decider.Mode(), s.cfg.FrameInterval)
	return nil
}

// Stop ends the session and releases both model sessions. Safe to call more
// than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		if s.stopCh == nil {
			return
		}
		close(s.stopCh)
		<-s.done
		s.provider.Unsubscribe(s.sub)
		if err := s.matcher.Close(); err != nil {
			log.Printf("[Session] Error closing models: %v", err)
		}
		s.running.Store(false)
		log.Printf("[Session] Stopped")
	})
}

// Running reports whether the sampling loop is active.
func (s *Session) Running() bool {
	return s.running.Load()
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		FramesSampled: s.framesSampled.Load(),
		FramesSkipped: s.framesSkipped.Load(),
		FrameErrors:   s.frameErrors.Load(),
		AlertsSent:    s.alertsSent.Load(),
	}
}

func (s *Session) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case frame, ok := <-s.sub.Channel:
			if !ok {
				return
			}
			s.gate.Offer(frame)
		case <-ticker.C:
			frame := s.gate.Take()
			if frame == nil {
				continue
			}
			s.processFrame(frame)
		}
	}
}

// processFrame runs one frame through match, decide, notify. Failures are
// logged and contained; the next tick gets a fresh frame.
func (s *Session) processFrame(frame *Frame) {
	if !s.matcher.Ready() {
		s.framesSkipped.Add(1)
		return
	}
	s.framesSampled.Add(1)

	img, err := imaging.Decode(frame.Data)
	if err != nil {
		s.frameErrors.Add(1)
		log.Printf("[Session] Error decoding frame %d: %v", frame.Seq, err)
		return
	}
	if s.cfg.Rotation != 0 {
		img = imaging.Rotate(img, s.cfg.Rotation)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FrameInterval*4)
	defer cancel()

	res, err := s.matcher.EvaluateFrame(ctx, img)
	if err != nil {
		s.frameErrors.Add(1)
		log.Printf("[Session] Error evaluating frame %d: %v", frame.Seq, err)
		return
	}

	now := time.Now()
	decision := s.decider.Evaluate(res, now)

	if s.bus != nil && len(res.Faces) > 0 {
		s.bus.Publish(Event{Type: EventMatch, Time: now, Faces: len(res.Faces), Result: res})
	}
	if decision == nil {
		return
	}

	alert := alerting.Alert{Decision: *decision}
	if annotated, err := s.annotate(img, res, *decision); err == nil {
		alert.Frame = annotated
	} else {
		log.Printf("[Session] Error annotating frame %d: %v", frame.Seq, err)
		alert.Frame = frame.Data
	}

	if err := s.notifier.Notify(ctx, alert); err != nil {
		log.Printf("[Session] Error delivering alert: %v", err)
	} else {
		s.alertsSent.Add(1)
	}

	if s.logs != nil {
		if _, err := s.logs.Append(*decision); err != nil {
			log.Printf("[Session] Error recording alert: %v", err)
		}
	}
	if s.bus != nil {
		s.bus.Publish(Event{Type: EventAlert, Time: now, Faces: len(res.Faces), Result: res, Decision: decision})
	}
}

// annotate draws the detected face boxes onto the frame and re-encodes it
// for the alert photo.
func (s *Session) annotate(img image.Image, res watchlist.MatchResult, decision alerting.Decision) ([]byte, error) {
	alertIdx := alertFaceIndex(res, decision)
	labels := make([]imaging.BoxLabel, 0, len(res.Faces))
	for i, det := range res.Faces {
		label := imaging.BoxLabel{
			Box:   det.Box,
			Color: imaging.DetectionBoxColor,
			Label: imaging.FormatScoreLabel("", det.Score),
		}
		// The face behind the decision carries its name and color.
		if i == alertIdx {
			label.Color = imaging.AlertBoxColor
			label.Label = imaging.FormatScoreLabel(decision.Name, decision.Score)
		}
		labels = append(labels, label)
	}
	return imaging.EncodeJPEG(imaging.DrawBoxes(img, labels), s.cfg.JPEGQuality)
}

// alertFaceIndex picks the face whose score produced the decision. Faces are
// ordered by detection confidence, so the first face is only a fallback when
// the active list has no match (a whitelist absence alert).
func alertFaceIndex(res watchlist.MatchResult, decision alerting.Decision) int {
	switch decision.Mode {
	case watchlist.Blacklist:
		if res.Blacklist != nil {
			return res.Blacklist.FaceIndex
		}
	case watchlist.Whitelist:
		if res.Whitelist != nil {
			return res.Whitelist.FaceIndex
		}
	}
	return 0
}
