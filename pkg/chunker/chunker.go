// Package chunker splits document text into overlapping windows using
// recursive separator-based splitting.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/OFFIS-RIT/kgimport/pkg/common"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"

	"github.com/pkoukk/tiktoken-go"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 100
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// ErrInvalidConfiguration is returned when size and overlap do not describe a
// usable window.
var ErrInvalidConfiguration = errors.New("invalid chunker configuration")

// LengthFunc measures a piece of text in the unit chunk sizes are given in.
type LengthFunc func(string) int

// RuneLength counts characters.
func RuneLength(s string) int {
	return utf8.RuneCountInString(s)
}

// Chunker splits text into chunks of at most Size units with up to Overlap
// units of look-back context carried into the next chunk.
//
// A Chunker should be created using New.
type Chunker struct {
	size       int
	overlap    int
	separators []string
	length     LengthFunc

	err error
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSize sets the maximum chunk length.
func WithSize(size int) Option {
	return func(c *Chunker) {
		c.size = size
	}
}

// WithOverlap sets the look-back length carried between consecutive chunks.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// WithSeparators replaces the separator list. Separators are tried in order;
// "" splits into single characters.
func WithSeparators(separators ...string) Option {
	return func(c *Chunker) {
		if len(separators) > 0 {
			c.separators = separators
		}
	}
}

// WithLengthFunc measures text with fn instead of counting characters.
func WithLengthFunc(fn LengthFunc) Option {
	return func(c *Chunker) {
		if fn != nil {
			c.length = fn
		}
	}
}

// WithTokenLength measures text in tokens of the named tiktoken encoding,
// e.g. "cl100k_base" or "o200k_base". An empty name keeps character counting.
func WithTokenLength(encoding string) Option {
	return func(c *Chunker) {
		if encoding == "" {
			return
		}
		enc, err := tiktoken.GetEncoding(encoding)
		if err != nil {
			c.err = fmt.Errorf("failed to load encoding %s: %w", encoding, err)
			return
		}
		c.length = func(s string) int {
			return len(enc.Encode(s, nil, nil))
		}
	}
}

// New returns a Chunker with the default size 1000, overlap 100 and
// separators ["\n\n", "\n", " ", ""], adjusted by opts.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		size:       DefaultSize,
		overlap:    DefaultOverlap,
		separators: DefaultSeparators,
		length:     RuneLength,
	}
	for _, o := range opts {
		o(c)
	}
	if c.err != nil {
		return nil, c.err
	}
	if c.size <= 0 || c.overlap < 0 || c.overlap >= c.size {
		return nil, fmt.Errorf(
			"%w: size %d must be positive and greater than overlap %d",
			ErrInvalidConfiguration, c.size, c.overlap,
		)
	}
	return c, nil
}

// Split cuts text into chunks tagged with filePath and positions 0..n-1.
// Empty text yields no chunks.
func (c *Chunker) Split(text string, filePath string) []*common.Chunk {
	if strings.TrimSpace(text) == "" {
		return []*common.Chunk{}
	}

	pieces := c.split(text, c.separators)
	chunks := make([]*common.Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, &common.Chunk{
			Text:     p,
			FilePath: filePath,
			Position: i,
		})
	}
	return chunks
}

// Split is a shorthand for New(opts...) followed by Split.
func Split(text string, filePath string, opts ...Option) ([]*common.Chunk, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return c.Split(text, filePath), nil
}

func (c *Chunker) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var splits []string
	if separator == "" {
		splits = strings.Split(text, "")
	} else {
		for _, s := range strings.Split(text, separator) {
			if s != "" {
				splits = append(splits, s)
			}
		}
	}

	var (
		out  []string
		good []string
	)
	for _, s := range splits {
		if c.length(s) < c.size {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			logger.Warn("[Chunker] Piece exceeds chunk size and cannot be split further", "length", c.length(s), "size", c.size)
			if t := strings.TrimSpace(s); t != "" {
				out = append(out, t)
			}
			continue
		}
		out = append(out, c.split(s, rest)...)
	}
	if len(good) > 0 {
		out = append(out, c.merge(good, separator)...)
	}
	return out
}

// merge joins adjacent splits into windows of at most size units, keeping
// up to overlap units of the previous window at the start of the next.
func (c *Chunker) merge(splits []string, separator string) []string {
	sepLen := c.length(separator)
	joinCost := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	var (
		out     []string
		current []string
		total   int
	)
	for _, s := range splits {
		l := c.length(s)
		if len(current) > 0 && total+l+joinCost(len(current)) > c.size {
			if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
				out = append(out, doc)
			}
			for total > c.overlap || (total > 0 && total+l+joinCost(len(current)) > c.size) {
				total -= c.length(current[0]) + joinCost(len(current)-1)
				current = current[1:]
			}
		}
		current = append(current, s)
		total += l + joinCost(len(current)-1)
	}
	if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
		out = append(out, doc)
	}
	return out
}
