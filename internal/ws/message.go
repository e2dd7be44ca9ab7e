package ws

import (
	"time"

	"lookout/internal/pipeline"
)

// EventMessage is the wire form of a pipeline event.
type EventMessage struct {
	Type      string     `json:"type"` // "match" or "alert"
	Timestamp time.Time  `json:"timestamp"`
	Faces     []FaceBox  `json:"faces"`
	Match     *MatchInfo `json:"match,omitempty"`
	Alert     *AlertInfo `json:"alert,omitempty"`
}

// FaceBox is one detected face in frame pixel coordinates.
type FaceBox struct {
	BBox       []float32 `json:"bbox"` // [x, y, w, h]
	Confidence float32   `json:"confidence"`
}

// MatchInfo is the best watchlist pairing for the frame.
type MatchInfo struct {
	Name       string  `json:"name"`
	Similarity float32 `json:"similarity"`
	List       string  `json:"list"` // "blacklist" or "whitelist"
}

// AlertInfo describes an emitted alert.
type AlertInfo struct {
	Mode       string  `json:"mode"`
	Name       string  `json:"name,omitempty"`
	Similarity float32 `json:"similarity"`
}

// NewEventMessage converts a pipeline event for broadcast.
func NewEventMessage(event pipeline.Event) *EventMessage {
	msg := &EventMessage{
		Type:      string(event.Type),
		Timestamp: event.Time,
		Faces:     make([]FaceBox, 0, len(event.Result.Faces)),
	}

	for _, det := range event.Result.Faces {
		msg.Faces = append(msg.Faces, FaceBox{
			BBox:       []float32{det.Box.X1, det.Box.Y1, det.Box.Width(), det.Box.Height()},
			Confidence: det.Score,
		})
	}

	// Prefer the blacklist pairing for display; it is the one that can
	// name somebody.
	if m := event.Result.Blacklist; m != nil {
		msg.Match = &MatchInfo{Name: m.Name, Similarity: m.Score, List: "blacklist"}
	} else if m := event.Result.Whitelist; m != nil {
		msg.Match = &MatchInfo{Name: m.Name, Similarity: m.Score, List: "whitelist"}
	}

	if d := event.Decision; d != nil {
		msg.Alert = &AlertInfo{Mode: string(d.Mode), Name: d.Name, Similarity: d.Score}
	}
	return msg
}
