package textutil

import (
	"math"
	"regexp"
	"strings"
)

var wordSplit = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Words splits text into folded tokens of at least three characters.
func Words(text string) []string {
	raw := wordSplit.Split(Fold(text), -1)
	out := make([]string, 0, len(raw))
	for _, token := range raw {
		if len([]rune(token)) < 3 {
			continue
		}
		out = append(out, token)
	}
	return out
}

// Similarity is the cosine similarity of the word-frequency vectors of a
// and b: 1 for identical vocabularies, 0 when they share no words or either
// is empty.
func Similarity(a, b string) float64 {
	va, vb := frequencies(a), frequencies(b)
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}
	var dot, na, nb float64
	for token, count := range va {
		na += count * count
		if other, ok := vb[token]; ok {
			dot += count * other
		}
	}
	for _, count := range vb {
		nb += count * count
	}
	if dot == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Rounding can push identical inputs a hair above 1.
	return math.Min(sim, 1)
}

func frequencies(text string) map[string]float64 {
	words := Words(text)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]float64, len(words))
	for _, w := range words {
		out[strings.TrimSpace(w)]++
	}
	return out
}
