package recognition

import (
	"testing"
	"time"

	"github.com/sentrahub/sentra/internal/models"
)

func identity(name string, embedding ...float64) *models.Identity {
	return &models.Identity{Name: name, Embedding: embedding, CreatedAt: time.Now()}
}

func TestEuclideanMatcher_Match(t *testing.T) {
	m := NewEuclideanMatcher()
	known := []*models.Identity{
		identity("alice", 0.0, 0.0, 0.0),
		identity("bob", 1.0, 1.0, 1.0),
	}

	tests := []struct {
		name      string
		embedding []float64
		tolerance float64
		wantName  string
		wantOK    bool
	}{
		{"exact match", []float64{0.0, 0.0, 0.0}, 0.6, "alice", true},
		{"close match", []float64{0.1, 0.1, 0.1}, 0.6, "alice", true},
		{"nearest wins", []float64{0.9, 0.9, 0.9}, 0.6, "bob", true},
		{"outside tolerance", []float64{0.5, 0.5, 0.5}, 0.1, "", false},
		{"empty embedding", nil, 0.6, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := m.Match(tt.embedding, known, tt.tolerance)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if name != tt.wantName {
				t.Errorf("Expected name %q, got %q", tt.wantName, name)
			}
		})
	}
}

func TestEuclideanMatcher_MatchNoKnownIdentities(t *testing.T) {
	m := NewEuclideanMatcher()

	if _, ok := m.Match([]float64{0.1, 0.2}, nil, 0.6); ok {
		t.Error("Expected no match with empty identity set")
	}
}

func TestEuclideanMatcher_MatchSkipsMismatchedDimensions(t *testing.T) {
	m := NewEuclideanMatcher()
	known := []*models.Identity{
		identity("short", 0.0),
		identity("right", 0.0, 0.0, 0.0),
	}

	name, ok := m.Match([]float64{0.0, 0.0, 0.0}, known, 0.6)
	if !ok || name != "right" {
		t.Errorf("Expected match against the compatible identity, got %q ok=%v", name, ok)
	}
}

func TestEuclideanMatcher_DefaultToleranceApplied(t *testing.T) {
	m := NewEuclideanMatcher()
	known := []*models.Identity{identity("alice", 0.0, 0.0)}

	// Distance 0.5 is inside the 0.6 default
	if _, ok := m.Match([]float64{0.3, 0.4}, known, 0); !ok {
		t.Error("Expected default tolerance to apply when none is configured")
	}

	// Distance 1.0 is outside
	if _, ok := m.Match([]float64{0.6, 0.8}, known, 0); ok {
		t.Error("Expected no match beyond default tolerance")
	}
}

func TestDistance(t *testing.T) {
	d, ok := distance([]float64{0, 0}, []float64{3, 4})
	if !ok {
		t.Fatal("Expected distance to be computable")
	}
	if d != 5 {
		t.Errorf("Expected distance 5, got %f", d)
	}

	if _, ok := distance([]float64{1}, []float64{1, 2}); ok {
		t.Error("Mismatched lengths must not compare")
	}
	if _, ok := distance(nil, nil); ok {
		t.Error("Empty vectors must not compare")
	}
}
