package text

import "strings"

// Segment splits text into speakable units at sentence boundaries (., !, ?)
// followed by whitespace, keeping the terminator attached to its sentence.
// A unit longer than maxUnitLen is split further at comma/semicolon
// boundaries followed by whitespace. Units are trimmed and empty units are
// dropped. For non-empty input the result is never empty: if no unit
// survives, the original text is returned as a single unit.
// If maxUnitLen is 0, no secondary splitting is performed.
func Segment(text string, maxUnitLen int) []string {
	var units []string

	for _, sentence := range splitAfter(text, isSentenceEnd) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if maxUnitLen > 0 && len(sentence) > maxUnitLen {
			for _, clause := range splitAfter(sentence, isClauseEnd) {
				clause = strings.TrimSpace(clause)
				if clause != "" {
					units = append(units, clause)
				}
			}

			continue
		}

		units = append(units, sentence)
	}

	if len(units) == 0 {
		return []string{text}
	}

	return units
}

func isSentenceEnd(b byte) bool { return b == '.' || b == '!' || b == '?' }

func isClauseEnd(b byte) bool { return b == ',' || b == ';' }

// splitAfter splits text after any run of terminator bytes followed by
// whitespace. The terminator run stays with the preceding piece and the
// whitespace run is consumed. A terminator not followed by whitespace
// (e.g. the dot in "3.14") is not a boundary.
func splitAfter(text string, isTerm func(byte) bool) []string {
	var pieces []string

	start := 0
	for i := 0; i < len(text); i++ {
		if !isTerm(text[i]) {
			continue
		}

		end := i + 1
		for end < len(text) && isTerm(text[end]) {
			end++
		}

		if end >= len(text) || !isSpace(text[end]) {
			i = end - 1
			continue
		}

		pieces = append(pieces, text[start:end])

		for end < len(text) && isSpace(text[end]) {
			end++
		}
		start = end
		i = end - 1
	}

	if start < len(text) {
		pieces = append(pieces, text[start:])
	}

	return pieces
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
