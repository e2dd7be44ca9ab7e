package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Frame is one captured camera frame, JPEG-encoded.
type Frame struct {
	Data      []byte
	Seq       uint64
	Timestamp time.Time
}

// Subscription is a registered frame consumer. Channel delivery is
// best-effort: when the buffer is full the frame is dropped, never queued
// behind stale ones.
type Subscription struct {
	Channel chan *Frame
	Done    chan struct{}
}

// CaptureStats counts what the capture loop did.
type CaptureStats struct {
	FramesCaptured uint64 `json:"frames_captured"`
	FramesDropped  uint64 `json:"frames_dropped"`
	LastFrameTime  int64  `json:"last_frame_time"`
}

// FrameProvider produces camera frames and broadcasts them to subscribers.
type FrameProvider interface {
	Start() error
	Stop()
	Subscribe(bufferSize int) *Subscription
	Unsubscribe(sub *Subscription)
	Running() bool
	Stats() CaptureStats
}

// FFmpegFrameProvider captures frames from a single camera device using
// FFmpeg (rtsp, http streams, v4l2) or plain HTTP polling for still-image
// endpoints.
type FFmpegFrameProvider struct {
	device string
	fps    int
	width  int
	height int

	running atomic.Bool
	stopCh  chan struct{}
	cmd     *exec.Cmd

	subMu       sync.RWMutex
	subscribers map[*Subscription]bool

	frameSeq atomic.Uint64
	statsMu  sync.RWMutex
	stats    CaptureStats
}

// NewFFmpegFrameProvider creates a provider for the given device.
func NewFFmpegFrameProvider(device string, fps, width, height int) *FFmpegFrameProvider {
	if fps <= 0 {
		fps = 15
	}
	return &FFmpegFrameProvider{
		device:      device,
		fps:         fps,
		width:       width,
		height:      height,
		subscribers: make(map[*Subscription]bool),
	}
}

// Start launches the capture loop.
func (p *FFmpegFrameProvider) Start() error {
	if p.running.Load() {
		return fmt.Errorf("capture already started for %s", p.device)
	}
	p.stopCh = make(chan struct{})
	go p.run()
	log.Printf("[FrameProvider] Started capture (device: %s, fps: %d)", p.device, p.fps)
	return nil
}

// Stop kills the capture process and closes all subscriptions.
func (p *FFmpegFrameProvider) Stop() {
	if !p.running.Load() {
		return
	}
	close(p.stopCh)

	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}

	p.subMu.Lock()
	for sub := range p.subscribers {
		close(sub.Done)
		delete(p.subscribers, sub)
	}
	p.subMu.Unlock()

	log.Printf("[FrameProvider] Stopped capture (device: %s)", p.device)
}

// Subscribe registers a new frame consumer.
func (p *FFmpegFrameProvider) Subscribe(bufferSize int) *Subscription {
	if bufferSize <= 0 {
		bufferSize = 3
	}

	sub := &Subscription{
		Channel: make(chan *Frame, bufferSize),
		Done:    make(chan struct{}),
	}

	p.subMu.Lock()
	p.subscribers[sub] = true
	total := len(p.subscribers)
	p.subMu.Unlock()

	log.Printf("[FrameProvider] New subscriber (total: %d)", total)
	return sub
}

// Unsubscribe removes a consumer and closes its Done channel.
func (p *FFmpegFrameProvider) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	p.subMu.Lock()
	if _, ok := p.subscribers[sub]; ok {
		delete(p.subscribers, sub)
		close(sub.Done)
	}
	p.subMu.Unlock()
}

// Running reports whether the capture loop is active.
func (p *FFmpegFrameProvider) Running() bool {
	return p.running.Load()
}

// Stats returns a copy of the capture counters.
func (p *FFmpegFrameProvider) Stats() CaptureStats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

func (p *FFmpegFrameProvider) run() {
	p.running.Store(true)
	defer p.running.Store(false)

	log.Printf("[FrameProvider] Starting capture loop for %s", p.device)

	if p.isHTTPImageEndpoint() {
		p.captureHTTPImages()
		return
	}
	p.captureFFmpeg()
}

func (p *FFmpegFrameProvider) isHTTPImageEndpoint() bool {
	return (strings.HasPrefix(p.device, "http://") || strings.HasPrefix(p.device, "https://")) &&
		(strings.Contains(p.device, ".jpg") || strings.Contains(p.device, ".jpeg") || strings.Contains(p.device, "image"))
}

func (p *FFmpegFrameProvider) captureHTTPImages() {
	client := &http.Client{Timeout: 10 * time.Second}
	interval := time.Second / time.Duration(p.fps)
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			resp, err := client.Get(p.device)
			if err != nil {
				log.Printf("[FrameProvider] Error fetching frame from %s: %v", p.device, err)
				continue
			}

			frame, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				log.Printf("[FrameProvider] Error reading frame: %v", err)
				continue
			}

			p.broadcastFrame(frame)
		}
	}
}

func (p *FFmpegFrameProvider) captureFFmpeg() {
	var args []string

	if strings.HasPrefix(p.device, "rtsp://") {
		args = []string{
			"-rtsp_transport", "tcp",
			"-i", p.device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fmt.Sprintf("%d", p.fps),
			"-q:v", "5",
			"-",
		}
	} else if strings.HasPrefix(p.device, "http://") || strings.HasPrefix(p.device, "https://") {
		args = []string{
			"-i", p.device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fmt.Sprintf("%d", p.fps),
			"-q:v", "5",
			"-",
		}
	} else {
		// V4L2 device (USB camera)
		args = []string{
			"-f", "v4l2",
			"-video_size", fmt.Sprintf("%dx%d", p.width, p.height),
			"-framerate", fmt.Sprintf("%d", p.fps),
			"-i", p.device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "5",
			"-",
		}
	}

	p.cmd = exec.Command("ffmpeg", args...)

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		log.Printf("[FrameProvider] Error creating stdout pipe: %v", err)
		return
	}

	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		log.Printf("[FrameProvider] Error creating stderr pipe: %v", err)
		return
	}

	if err := p.cmd.Start(); err != nil {
		log.Printf("[FrameProvider] Error starting ffmpeg: %v", err)
		return
	}

	// Consume stderr silently
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
		}
	}()

	frameBuffer := make([]byte, 0, 1024*1024)
	chunk := make([]byte, 8192)

	for {
		select {
		case <-p.stopCh:
			return
		default:
			n, err := stdout.Read(chunk)
			if err != nil {
				if err != io.EOF {
					log.Printf("[FrameProvider] Error reading frame: %v", err)
				}
				return
			}

			frameBuffer = append(frameBuffer, chunk[:n]...)

			for {
				frame := extractJPEGFrame(&frameBuffer)
				if frame == nil {
					break
				}
				p.broadcastFrame(frame)
			}
		}
	}
}

func (p *FFmpegFrameProvider) broadcastFrame(data []byte) {
	seq := p.frameSeq.Add(1)
	now := time.Now()

	frame := &Frame{
		Data:      data,
		Seq:       seq,
		Timestamp: now,
	}

	p.statsMu.Lock()
	p.stats.FramesCaptured++
	p.stats.LastFrameTime = now.Unix()
	p.statsMu.Unlock()

	p.subMu.RLock()
	for sub := range p.subscribers {
		select {
		case sub.Channel <- frame:
		default:
			// Subscriber is slow, drop frame
			p.statsMu.Lock()
			p.stats.FramesDropped++
			p.statsMu.Unlock()
		}
	}
	p.subMu.RUnlock()

	if seq%100 == 0 {
		p.subMu.RLock()
		subCount := len(p.subscribers)
		p.subMu.RUnlock()
		log.Printf("[FrameProvider] Frame %d, %d subscribers", seq, subCount)
	}
}

// extractJPEGFrame extracts a complete JPEG frame from buffer
func extractJPEGFrame(buffer *[]byte) []byte {
	if len(*buffer) < 4 {
		return nil
	}

	// Find JPEG start marker (FFD8)
	startIdx := -1
	for i := 0; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD8 {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return nil
	}

	// Find JPEG end marker (FFD9)
	endIdx := -1
	for i := startIdx + 2; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD9 {
			endIdx = i + 2
			break
		}
	}
	if endIdx == -1 {
		return nil
	}

	frame := make([]byte, endIdx-startIdx)
	copy(frame, (*buffer)[startIdx:endIdx])
	*buffer = (*buffer)[endIdx:]

	return frame
}

var _ FrameProvider = (*FFmpegFrameProvider)(nil)
