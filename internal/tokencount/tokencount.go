// Package tokencount estimates LLM token counts and splits long documents
// into chunks that fit a per-request token budget. It uses the ~4 bytes per
// token heuristic, which is close enough for budgeting GPT-family prompts.
package tokencount

import "strings"

// Estimate returns the approximate token count of s.
func Estimate(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}

// Split breaks text into chunks of at most maxTokens estimated tokens.
// Chunks end on paragraph boundaries where possible, then on line and word
// boundaries; a single word longer than the budget is cut. Joining the
// chunks with "\n\n" restores the paragraphs. maxTokens <= 0 disables splitting.
func Split(text string, maxTokens int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxTokens <= 0 || Estimate(text) <= maxTokens {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}
	add := func(piece, sep string) {
		if cur.Len() > 0 && Estimate(cur.String()+sep+piece) > maxTokens {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(piece)
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if Estimate(para) <= maxTokens {
			add(para, "\n\n")
			continue
		}
		// Oversized paragraph: it gets chunks of its own.
		flush()
		for _, piece := range splitWords(para, maxTokens*4) {
			add(piece, " ")
		}
		flush()
	}
	flush()
	return chunks
}

// splitWords cuts s into words no longer than maxBytes.
func splitWords(s string, maxBytes int) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		for len(w) > maxBytes {
			cut := maxBytes
			for cut > 0 && !isRuneStart(w[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxBytes
			}
			out = append(out, w[:cut])
			w = w[cut:]
		}
		out = append(out, w)
	}
	return out
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
