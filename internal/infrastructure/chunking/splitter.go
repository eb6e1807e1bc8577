package chunking

import (
	"fmt"
	"iter"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
)

// Splitter cuts text into fixed-size overlapping windows measured in runes.
// Offsets are rune offsets into the original text, so the windows
// reconstruct the input exactly.
type Splitter struct{}

func NewSplitter() *Splitter {
	return &Splitter{}
}

// Spans lazily yields the windows for text. The configuration is validated
// up front so an invalid combination fails before any window is produced.
func (s *Splitter) Spans(text string, maxSize, overlap int) (iter.Seq[domain.ChunkSpan], error) {
	if err := validate(maxSize, overlap); err != nil {
		return nil, err
	}
	runes := []rune(text)
	step := maxSize - overlap
	return func(yield func(domain.ChunkSpan) bool) {
		for start := 0; start < len(runes); start += step {
			end := start + maxSize
			if end > len(runes) {
				end = len(runes)
			}
			if !yield(domain.ChunkSpan{Text: string(runes[start:end]), Offset: start}) {
				return
			}
			if end == len(runes) {
				return
			}
		}
	}, nil
}

func (s *Splitter) Split(text string, maxSize, overlap int) ([]domain.ChunkSpan, error) {
	seq, err := s.Spans(text, maxSize, overlap)
	if err != nil {
		return nil, err
	}
	var out []domain.ChunkSpan
	for span := range seq {
		out = append(out, span)
	}
	return out, nil
}

func validate(maxSize, overlap int) error {
	if maxSize <= 0 {
		return domain.WrapError(domain.ErrInvalidChunkConfig, "split", fmt.Errorf("max size %d must be positive", maxSize))
	}
	if overlap < 0 {
		return domain.WrapError(domain.ErrInvalidChunkConfig, "split", fmt.Errorf("overlap %d must not be negative", overlap))
	}
	if overlap >= maxSize {
		return domain.WrapError(domain.ErrInvalidChunkConfig, "split", fmt.Errorf("overlap %d must be smaller than max size %d", overlap, maxSize))
	}
	return nil
}
