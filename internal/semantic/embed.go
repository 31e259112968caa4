// Package semantic provides the deterministic text embedder and the
// pgvector-backed similarity index used by the analytics engine.
package semantic

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/xaenox/vibez/internal/models"
)

const (
	DefaultDimensions = 256
	minDimensions     = 64
	maxDimensions     = 3072

	// FNV-1a seeds for the three hashing slots. Stored vectors depend on
	// these values; changing them invalidates every index row.
	seedMain    uint32 = 0x811C9DC5
	seedSide    uint32 = 0x9E3779B1
	seedTrigram uint32 = 0x85EBCA6B

	fnvPrime uint32 = 0x01000193
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]{2,}`)

// Embedder turns text into a fixed-dimension vector. The hashing embedder
// below is the deterministic fallback; a model-backed provider can be
// swapped in behind the same interface.
type Embedder interface {
	EmbedText(text string) []float32
	Dimensions() int
}

// HashingEmbedder builds reproducible dense vectors with no external model:
// each token is hashed into a main slot (positive, length-damped) and a side
// slot (a negative fraction), and tokens of five or more characters spread
// every 3-character substring into a third slot. The result is L2-normalized.
type HashingEmbedder struct {
	dims int
}

func NewHashingEmbedder(dimensions int) (*HashingEmbedder, error) {
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}
	if dimensions < minDimensions || dimensions > maxDimensions {
		return nil, fmt.Errorf("embedding dimensions must be between %d and %d, got %d",
			minDimensions, maxDimensions, dimensions)
	}
	return &HashingEmbedder{dims: dimensions}, nil
}

func (e *HashingEmbedder) Dimensions() int {
	return e.dims
}

func (e *HashingEmbedder) EmbedText(text string) []float32 {
	vec := make([]float64, e.dims)
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return toFloat32(vec)
	}

	for _, token := range tokens {
		base := 1.0 / math.Max(1.0, math.Sqrt(float64(len(token))))
		vec[fnv1a(token, seedMain)%uint32(e.dims)] += base
		vec[fnv1a(token, seedSide)%uint32(e.dims)] -= base * 0.35

		if len(token) >= 5 {
			for i := 0; i+3 <= len(token); i++ {
				vec[fnv1a(token[i:i+3], seedTrigram)%uint32(e.dims)] += 0.15
			}
		}
	}

	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum <= 0 {
		return toFloat32(vec)
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
	return toFloat32(vec)
}

// Tokenize lowercases text and extracts alphanumeric runs of length >= 2.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// ComposeEmbeddingText joins the searchable fields of a record into the
// canonical text the index embeds.
func ComposeEmbeddingText(rec models.Record) string {
	parts := []string{
		rec.Body,
		strings.Join(rec.Topics, " "),
		strings.Join(rec.Entities, " "),
		strings.Join(rec.ContributionThemes, " "),
		rec.ContributionHint,
		rec.RoomName,
		rec.SenderName,
	}
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " \n ")
}

func fnv1a(value string, seed uint32) uint32 {
	h := seed
	for i := 0; i < len(value); i++ {
		h ^= uint32(value[i])
		h *= fnvPrime
	}
	return h
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
