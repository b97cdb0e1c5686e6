package ingestor

import (
	"strings"
	"unicode"
)

// Chunk splits content into overlapping spans. Whole sentences are
// accumulated until the target size is exceeded, then a short tail of
// trailing words is carried into the next span as overlap. Spans shorter
// than min are discarded.
func Chunk(content string, target, overlap, min int) []string {
	sentences := splitSentences(content)

	var (
		chunks  []string
		current strings.Builder
		grown   bool
	)

	for _, sentence := range sentences {
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
		grown = true

		if current.Len() >= target {
			chunk := current.String()
			chunks = append(chunks, chunk)
			current.Reset()
			current.WriteString(overlapTail(chunk, overlap))
			grown = false
		}
	}

	// the remainder is only kept if it holds more than the carried tail
	if grown {
		if last := strings.TrimSpace(current.String()); len(last) > 0 {
			chunks = append(chunks, last)
		}
	}

	kept := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk) >= min {
			kept = append(kept, chunk)
		}
	}

	return kept
}

func splitSentences(s string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(s)

	for i, r := range runes {
		b.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}

		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}

		if sentence := strings.TrimSpace(b.String()); len(sentence) > 0 {
			sentences = append(sentences, sentence)
		}
		b.Reset()
	}

	if tail := strings.TrimSpace(b.String()); len(tail) > 0 {
		sentences = append(sentences, tail)
	}

	return sentences
}

func overlapTail(chunk string, overlap int) string {
	if overlap <= 0 {
		return ""
	}

	words := strings.Fields(chunk)

	var tail []string
	size := 0

	for i := len(words) - 1; i >= 0; i-- {
		word := words[i]
		if size+len(word)+1 > overlap && len(tail) > 0 {
			break
		}
		tail = append([]string{word}, tail...)
		size += len(word) + 1
	}

	return strings.Join(tail, " ")
}
