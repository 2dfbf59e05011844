package usecases

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrInvalidInput is returned when splitting blank text.
var ErrInvalidInput = errors.New("invalid input: text is empty")

// DefaultSeparators are tried in order: paragraph, line, sentence, word, character.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter splits text into overlapping chunks, recursing through a
// prioritized separator list. Lengths are measured in runes.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter creates a Splitter. Invalid sizes fall back to 1000/200.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = min(200, chunkSize/5)
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: DefaultSeparators,
	}
}

// Split splits text into chunks in document order.
func (s *Splitter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidInput
	}
	return s.split(text, s.separators), nil
}

// Split is shorthand for NewSplitter(chunkSize, overlap).Split(text).
func Split(text string, chunkSize, overlap int) ([]string, error) {
	return NewSplitter(chunkSize, overlap).Split(text)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var chunks, pending []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// merge packs small pieces into chunks of at most chunkSize runes, carrying
// up to overlap runes of trailing pieces into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.chunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepSeparator splits text on sep, attaching each separator to the
// start of the piece that follows it. Empty pieces are dropped.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.Split(text, sep)
	pieces := make([]string, 0, len(parts))
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, p := range parts[1:] {
		pieces = append(pieces, sep+p)
	}
	return pieces
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
