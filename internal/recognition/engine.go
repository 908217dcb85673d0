// Package recognition holds the face matching pipeline: decoding
// uploaded frames, locating faces, and resolving embeddings against the
// set of known identities.
//
// The hub does not ship a neural detector; Engine is the seam where an
// external model plugs in. The default implementation detects nothing
// and matches embeddings by euclidean distance, which is enough to run
// the registry, alerting and enrollment flows end to end.
package recognition

import (
	"image"
	"math"

	"github.com/sentrahub/sentra/internal/models"
)

// DefaultTolerance is the match distance threshold used when the
// configuration does not set one
const DefaultTolerance = 0.6

// Engine locates faces in a frame and resolves embeddings to names
type Engine interface {
	// Detect returns the bounding boxes of faces found in the frame
	Detect(img image.Image) []models.BoundingBox

	// Embed computes the embedding vector for the face at box.
	// A nil return means no embedding could be produced.
	Embed(img image.Image, box models.BoundingBox) []float64

	// Match resolves an embedding against the known identities.
	// ok is false when nothing is within tolerance.
	Match(embedding []float64, known []*models.Identity, tolerance float64) (name string, ok bool)
}

// EuclideanMatcher matches embeddings by euclidean distance. Detect and
// Embed are stubs awaiting an external model; Match implements the
// nearest-neighbor-within-tolerance rule.
type EuclideanMatcher struct{}

// NewEuclideanMatcher creates the default engine
func NewEuclideanMatcher() *EuclideanMatcher {
	return &EuclideanMatcher{}
}

// Detect returns no boxes; detection requires an external model
func (m *EuclideanMatcher) Detect(img image.Image) []models.BoundingBox {
	return nil
}

// Embed returns nil; embedding requires an external model
func (m *EuclideanMatcher) Embed(img image.Image, box models.BoundingBox) []float64 {
	return nil
}

// Match returns the closest known identity within tolerance
func (m *EuclideanMatcher) Match(embedding []float64, known []*models.Identity, tolerance float64) (string, bool) {
	if len(embedding) == 0 {
		return "", false
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	best := ""
	bestDist := math.Inf(1)
	for _, id := range known {
		d, ok := distance(embedding, id.Embedding)
		if !ok {
			continue
		}
		if d < bestDist {
			bestDist = d
			best = id.Name
		}
	}

	if best == "" || bestDist > tolerance {
		return "", false
	}
	return best, true
}

// distance is the euclidean distance between two equal-length vectors
func distance(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), true
}
