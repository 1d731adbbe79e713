package tokencount

import (
	"strings"
	"testing"
)

func TestEstimate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		if got := Estimate(tt.in); got != tt.want {
			t.Errorf("Estimate(%d bytes) = %d, want %d", len(tt.in), got, tt.want)
		}
	}
}

func TestSplit_SmallTextIsOneChunk(t *testing.T) {
	t.Parallel()
	got := Split("  short text \n", 100)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("Split = %q", got)
	}
	if got := Split("   ", 100); got != nil {
		t.Errorf("blank text = %q, want nil", got)
	}
	long := strings.Repeat("word ", 1000)
	if got := Split(long, 0); len(got) != 1 {
		t.Errorf("maxTokens 0 should not split, got %d chunks", len(got))
	}
}

func TestSplit_ParagraphBoundaries(t *testing.T) {
	t.Parallel()
	p1 := strings.Repeat("a", 40) // 10 tokens
	p2 := strings.Repeat("b", 40)
	p3 := strings.Repeat("c", 40)
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	got := Split(text, 25)
	want := []string{p1 + "\n\n" + p2, p3}
	if len(got) != len(want) {
		t.Fatalf("chunks = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
	if strings.Join(got, "\n\n") != text {
		t.Error("joining chunks should restore the text")
	}
}

func TestSplit_OversizedParagraph(t *testing.T) {
	t.Parallel()
	para := strings.TrimSpace(strings.Repeat("word ", 100)) // ~125 tokens
	chunks := Split("intro\n\n"+para, 20)

	if chunks[0] != "intro" {
		t.Errorf("first chunk = %q, want intro", chunks[0])
	}
	for i, c := range chunks {
		if Estimate(c) > 20 {
			t.Errorf("chunk %d has %d tokens, budget 20", i, Estimate(c))
		}
	}
	if got := strings.Join(chunks[1:], " "); got != para {
		t.Error("word chunks should rejoin to the paragraph")
	}
}

func TestSplit_LongWordIsCut(t *testing.T) {
	t.Parallel()
	word := strings.Repeat("é", 50) // 100 bytes
	chunks := Split(word, 5)        // 20 bytes per chunk
	if got := strings.Join(chunks, ""); got != word {
		t.Errorf("rejoined = %q", got)
	}
	for _, c := range chunks {
		if !strings.HasPrefix(c, "é") || len(c) > 20 {
			t.Errorf("chunk %q split a rune or exceeds budget", c)
		}
	}
}
