// Package chunker splits extracted text into overlapping, boundary-aware
// segments, the unit of embedding and retrieval.
package chunker

import (
	"errors"
	"strings"
	"unicode"
)

// ErrEmptyInput is returned for empty or whitespace-only text.
var ErrEmptyInput = errors.New("chunker: empty input text")

// Piece is one chunk of the source text. Start and End are rune offsets,
// strictly increasing by index and never exceeding the source length.
type Piece struct {
	Index int
	Text  string
	Start int
	End   int
}

// BoundaryPolicy proposes a cut point inside a window. Given the window runes
// it returns the offset to cut at (relative to the window start), or -1 to
// request a hard cut at the window end.
type BoundaryPolicy interface {
	Cut(window []rune) int
}

// SentenceBoundaryPolicy searches backward from the window end for the last
// sentence terminator, falling back to the last whitespace. The cut is only
// accepted when it lies within the final MinFraction share of the window so a
// single early period cannot produce a tiny chunk.
type SentenceBoundaryPolicy struct {
	// MinFraction is the share of the window, measured from the end, in
	// which a proposed cut is acceptable.
	MinFraction float64
}

func (p SentenceBoundaryPolicy) Cut(window []rune) int {
	minFraction := p.MinFraction
	if minFraction <= 0 || minFraction > 1 {
		minFraction = 0.5
	}
	floor := int(float64(len(window)) * (1 - minFraction))

	for i := len(window) - 1; i > floor; i-- {
		if isSentenceTerminator(window[i]) {
			return i + 1
		}
	}
	for i := len(window) - 1; i > floor; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}
	return -1
}

func isSentenceTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '\n':
		return true
	}
	return false
}

// Config controls window size and overlap, both in runes.
type Config struct {
	Size    int
	Overlap int
}

// Chunker slides a window over text and cuts it with a boundary policy.
type Chunker struct {
	cfg    Config
	policy BoundaryPolicy
}

func New(cfg Config) *Chunker {
	return NewWithPolicy(cfg, SentenceBoundaryPolicy{MinFraction: 0.5})
}

func NewWithPolicy(cfg Config, policy BoundaryPolicy) *Chunker {
	if cfg.Size <= 0 {
		cfg.Size = 1000
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.Size {
		cfg.Overlap = cfg.Size / 2
	}
	return &Chunker{cfg: cfg, policy: policy}
}

// Chunk splits text into ordered pieces. A text no longer than the window is
// returned as a single piece. The window end strictly advances every
// iteration, guaranteeing termination.
func (c *Chunker) Chunk(text string) ([]Piece, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	runes := []rune(text)
	if len(runes) <= c.cfg.Size {
		return []Piece{{Index: 0, Text: text, Start: 0, End: len(runes)}}, nil
	}

	var pieces []Piece
	start, prevEnd := 0, 0
	for start < len(runes) {
		end := start + c.cfg.Size
		if end >= len(runes) {
			end = len(runes)
		} else if cut := c.policy.Cut(runes[start:end]); cut > 0 {
			end = start + cut
		}

		// The window end must strictly advance every iteration or the loop
		// would not terminate; a boundary cut that lands at or before the
		// previous end is discarded in favor of a hard cut.
		if end <= prevEnd {
			end = start + c.cfg.Size
			if end > len(runes) {
				end = len(runes)
			}
		}
		prevEnd = end

		pieces = append(pieces, Piece{
			Index: len(pieces),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})

		if end == len(runes) {
			break
		}

		next := end - c.cfg.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return pieces, nil
}

// EstimateCount returns the chunk count the windowing formula produces for a
// text of the given rune length, ignoring boundary adjustments.
func EstimateCount(textLen, size, overlap int) int {
	if textLen <= 0 || size <= 0 {
		return 0
	}
	if textLen <= size {
		return 1
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}
	count := 1
	for end := size; end < textLen; end += step {
		count++
	}
	return count
}
