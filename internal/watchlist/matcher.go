package watchlist

import (
	"context"
	"fmt"
	"image"
	"log"

	"lookout/internal/detection"
	"lookout/internal/similarity"
)

// Match is the best-scoring pairing of a detected face with a watchlist
// entry.
type Match struct {
	Name  string  `json:"name"`
	Score float32 `json:"score"`
	// FaceIndex is the index into MatchResult.Faces of the face that
	// produced this score.
	FaceIndex int `json:"-"`
}

// MatchResult carries the best match per list for one frame. A nil pointer
// means the frame had no detectable face or the list is empty; there is no
// sentinel score.
type MatchResult struct {
	Blacklist *Match `json:"blacklist,omitempty"`
	Whitelist *Match `json:"whitelist,omitempty"`
	Faces     []detection.Detection
}

// Matcher scores camera frames against a fixed snapshot of the watchlist.
// The snapshot is partitioned once at construction; a Matcher lives for one
// monitoring session and never sees later watchlist edits.
type Matcher struct {
	detector *detection.Detector
	embedder *detection.Embedder

	blacklistNames []string
	blacklistEmbs  [][]float32
	whitelistNames []string
	whitelistEmbs  [][]float32
}

// NewMatcher partitions the snapshot by face type and binds the models.
func NewMatcher(detector *detection.Detector, embedder *detection.Embedder, snapshot []Entry) *Matcher {
	m := &Matcher{detector: detector, embedder: embedder}
	for _, entry := range snapshot {
		switch entry.Type {
		case Blacklist:
			m.blacklistNames = append(m.blacklistNames, entry.Name)
			m.blacklistEmbs = append(m.blacklistEmbs, entry.Embedding)
		case Whitelist:
			m.whitelistNames = append(m.whitelistNames, entry.Name)
			m.whitelistEmbs = append(m.whitelistEmbs, entry.Embedding)
		default:
			log.Printf("[Matcher] Skipping entry %s with unknown type %q", entry.ID, entry.Type)
		}
	}
	return m
}

// Initialize loads both models. A session must not accept frames until this
// returns nil; a load failure is fatal to starting, not something to retry
// per frame.
func (m *Matcher) Initialize(ctx context.Context) error {
	if err := m.detector.Initialize(ctx); err != nil {
		return fmt.Errorf("loading face detector: %w", err)
	}
	if err := m.embedder.Initialize(ctx); err != nil {
		return fmt.Errorf("loading face embedder: %w", err)
	}
	return nil
}

// Close releases both model sessions. Safe to call more than once; the
// sessions' own Close is idempotent.
func (m *Matcher) Close() error {
	detErr := m.detector.Close()
	embErr := m.embedder.Close()
	if detErr != nil {
		return detErr
	}
	return embErr
}

// Ready reports whether both models finished loading.
func (m *Matcher) Ready() bool {
	return m.detector.IsReady() && m.embedder.IsReady()
}

// EvaluateFrame detects faces, embeds each, and keeps the single best
// (face, entry) pairing per list across all faces in the frame. Frames with
// no detectable face return an empty result without touching the embedder.
func (m *Matcher) EvaluateFrame(ctx context.Context, frame image.Image) (MatchResult, error) {
	detections, err := m.detector.Detect(ctx, frame)
	if err != nil {
		return MatchResult{}, fmt.Errorf("detection failed: %w", err)
	}
	if len(detections) == 0 {
		return MatchResult{}, nil
	}

	faces, kept := detection.CropFaces(frame, detections)
	result := MatchResult{Faces: kept}
	for i, face := range faces {
		emb, err := m.embedder.Embed(ctx, face)
		if err != nil {
			return MatchResult{}, fmt.Errorf("embedding failed: %w", err)
		}
		result.Blacklist = bestMatch(result.Blacklist, i, emb, m.blacklistNames, m.blacklistEmbs)
		result.Whitelist = bestMatch(result.Whitelist, i, emb, m.whitelistNames, m.whitelistEmbs)
	}
	return result, nil
}

// bestMatch folds one face embedding into the running best match for a list.
func bestMatch(current *Match, faceIdx int, emb []float32, names []string, candidates [][]float32) *Match {
	if len(candidates) == 0 {
		return current
	}

	scores := similarity.Similarities(emb, candidates)
	top := similarity.TopN(scores, 1)
	best := Match{Name: names[top[0]], Score: scores[top[0]], FaceIndex: faceIdx}
	if current == nil || best.Score > current.Score {
		return &best
	}
	return current
}
