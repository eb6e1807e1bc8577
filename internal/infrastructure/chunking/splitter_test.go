package chunking

import (
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	spans, err := NewSplitter().Split("tiny", 100, 10)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(spans) != 1 || spans[0].Text != "tiny" || spans[0].Offset != 0 {
		t.Fatalf("unexpected spans: %+v", spans)
	}
}

func TestSplitEmptyText(t *testing.T) {
	spans, err := NewSplitter().Split("", 100, 10)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(spans) != 0 {
		t.Fatalf("expected no spans, got %d", len(spans))
	}
}

func TestSplitChunkCount(t *testing.T) {
	cases := []struct {
		length  int
		maxSize int
		overlap int
		want    int
	}{
		{length: 1000, maxSize: 1000, overlap: 200, want: 1},
		{length: 1001, maxSize: 1000, overlap: 200, want: 2},
		{length: 2600, maxSize: 1000, overlap: 200, want: 3},
		{length: 50, maxSize: 10, overlap: 0, want: 5},
		{length: 55, maxSize: 10, overlap: 5, want: 10},
	}
	for _, tc := range cases {
		text := strings.Repeat("a", tc.length)
		spans, err := NewSplitter().Split(text, tc.maxSize, tc.overlap)
		if err != nil {
			t.Fatalf("Split(len=%d) error = %v", tc.length, err)
		}
		// ceil((length - overlap) / (maxSize - overlap))
		if len(spans) != tc.want {
			t.Fatalf("len=%d max=%d overlap=%d: got %d chunks, want %d",
				tc.length, tc.maxSize, tc.overlap, len(spans), tc.want)
		}
	}
}

func TestSplitOffsetsReconstructInput(t *testing.T) {
	text := "Пример текста с юникодом: the quick brown fox jumps over the lazy dog, снова и снова."
	spans, err := NewSplitter().Split(text, 20, 5)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	runes := []rune(text)
	for i, span := range spans {
		window := []rune(span.Text)
		got := string(runes[span.Offset : span.Offset+len(window)])
		if got != span.Text {
			t.Fatalf("span %d does not match source at offset %d: %q vs %q", i, span.Offset, span.Text, got)
		}
	}
	// consecutive spans overlap by exactly the configured amount
	for i := 1; i < len(spans); i++ {
		if spans[i].Offset != spans[i-1].Offset+15 {
			t.Fatalf("span %d offset %d, want %d", i, spans[i].Offset, spans[i-1].Offset+15)
		}
	}
	last := spans[len(spans)-1]
	if last.Offset+len([]rune(last.Text)) != len(runes) {
		t.Fatalf("last span does not reach end of text")
	}
}

func TestSplitInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		maxSize int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSplitter().Split("text", tc.maxSize, tc.overlap)
			if !errors.Is(err, domain.ErrInvalidChunkConfig) {
				t.Fatalf("expected ErrInvalidChunkConfig, got %v", err)
			}
		})
	}
}

func TestSpansStopsWhenConsumerBreaks(t *testing.T) {
	seq, err := NewSplitter().Spans(strings.Repeat("a", 1000), 10, 0)
	if err != nil {
		t.Fatalf("Spans() error = %v", err)
	}
	seen := 0
	for range seq {
		seen++
		if seen == 3 {
			break
		}
	}
	if seen != 3 {
		t.Fatalf("expected early stop after 3 spans, got %d", seen)
	}
}
