// Package chunker splits long text into overlapping, sentence-aware chunks
// for embedding and retrieval.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultTargetSize = 400
	DefaultOverlap    = 50
)

// Options configures chunking behavior.
type Options struct {
	TargetSize int
	Overlap    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		Overlap:    DefaultOverlap,
	}
}

// Chunk splits text into ordered chunks. Trimmed text at or under the target
// size returns as a single chunk. Longer text is accumulated sentence by
// sentence; when a sentence would push the running chunk past the target the
// chunk is closed and the next one is seeded with the closed chunk's tail,
// trimmed forward to a word boundary so no word is split.
//
// Fallback ladder: no sentence boundaries → split on line breaks; no line
// breaks either → accumulate whitespace-delimited words with the same
// target/overlap logic.
func Chunk(text string, opts Options) []string {
	if opts.TargetSize <= 0 {
		opts = DefaultOptions()
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= opts.TargetSize {
		return []string{text}
	}

	if sentences := splitSentences(text); len(sentences) > 0 {
		return accumulate(sentences, " ", opts)
	}
	if paragraphs := splitParagraphs(text); len(paragraphs) > 1 {
		return accumulate(paragraphs, "\n", opts)
	}
	return accumulateWords(strings.Fields(text), opts)
}

// sentence terminators, including CJK full-width forms.
func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '…':
		return true
	}
	return false
}

// isCloser reports runes that may trail a terminator and still belong to the
// sentence (closing quotes and brackets).
func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '」', '』':
		return true
	}
	return false
}

// splitSentences splits on sentence boundaries. Returns nil when the text
// contains no terminator at all, which sends callers down the fallback
// ladder.
func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder
	terminated := false

	for _, r := range text {
		cur.WriteRune(r)
		if isTerminator(r) {
			terminated = true
			continue
		}
		if terminated && isCloser(r) {
			continue
		}
		if terminated && unicode.IsSpace(r) {
			s := strings.TrimSpace(cur.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			cur.Reset()
			terminated = false
			continue
		}
		terminated = false
	}

	if len(sentences) == 0 && !terminated {
		return nil
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// splitParagraphs splits on line breaks, dropping blank lines.
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	return paragraphs
}

// accumulate packs parts into chunks of at most TargetSize, seeding each new
// chunk with the previous chunk's overlap tail.
func accumulate(parts []string, sep string, opts Options) []string {
	var chunks []string
	cur := ""

	for _, p := range parts {
		if cur != "" && len(cur)+len(sep)+len(p) > opts.TargetSize {
			chunks = append(chunks, cur)
			cur = overlapTail(cur, opts.Overlap)
		}
		if cur == "" {
			cur = p
		} else {
			cur += sep + p
		}
	}
	if strings.TrimSpace(cur) != "" {
		chunks = append(chunks, cur)
	}
	return chunks
}

// accumulateWords is the word-granularity fallback. Overlap is expressed as
// an estimated word count derived from the average word length.
func accumulateWords(words []string, opts Options) []string {
	if len(words) == 0 {
		return nil
	}

	total := 0
	for _, w := range words {
		total += len(w)
	}
	avg := total / len(words)
	overlapWords := opts.Overlap / (avg + 1)
	if overlapWords < 1 {
		overlapWords = 1
	}

	var chunks []string
	var cur []string
	curLen := 0

	for _, w := range words {
		add := len(w)
		if len(cur) > 0 {
			add++ // separating space
		}
		if len(cur) > 0 && curLen+add > opts.TargetSize {
			chunks = append(chunks, strings.Join(cur, " "))
			start := len(cur) - overlapWords
			if start < 0 {
				start = 0
			}
			cur = append([]string(nil), cur[start:]...)
			curLen = len(strings.Join(cur, " "))
			add = len(w) + 1
		}
		cur = append(cur, w)
		curLen += add
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}
	return chunks
}

// overlapTail returns the last overlap bytes of s, advanced to the next word
// boundary so the seed never starts mid-word.
func overlapTail(s string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	if len(s) <= overlap {
		return s
	}

	cut := len(s) - overlap
	// Back onto a rune boundary.
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	tail := s[cut:]

	// If the cut landed mid-word, drop the partial word.
	if cut > 0 && !unicode.IsSpace(rune(s[cut-1])) {
		if i := strings.IndexFunc(tail, unicode.IsSpace); i >= 0 {
			tail = tail[i+1:]
		} else {
			return ""
		}
	}
	return strings.TrimSpace(tail)
}
