// Package chunk splits document text into token-bounded chunks with overlap.
package chunk

import (
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Defaults match the ingestion pipeline's tuning.
const (
	DefaultSize     = 500
	DefaultOverlap  = 50
	DefaultEncoding = "cl100k_base"
)

// Tokenizer encodes text to token ids and back.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenizer) Encode(text string) []int    { return t.enc.Encode(text, nil, nil) }
func (t tiktokenizer) Decode(tokens []int) string  { return t.enc.Decode(tokens) }

// Chunk is one contiguous slice of a document. StartChar/EndChar locate the
// un-overlapped content in the source text.
type Chunk struct {
	Content    string
	Index      int
	TokenCount int
	StartChar  int
	EndChar    int
}

// Chunker splits text paragraph-first, falling back to sentences and then to
// raw token windows for oversized runs.
type Chunker struct {
	size    int
	overlap int
	tok     Tokenizer
}

// New builds a Chunker on the cl100k_base encoding.
func New(size, overlap int) (*Chunker, error) {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, err
	}
	return NewWithTokenizer(size, overlap, tiktokenizer{enc: enc}), nil
}

// NewWithTokenizer builds a Chunker on a caller-supplied tokenizer.
func NewWithTokenizer(size, overlap int, tok Tokenizer) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
	}
	return &Chunker{size: size, overlap: overlap, tok: tok}
}

// CountTokens returns the token length of s.
func (c *Chunker) CountTokens(s string) int { return len(c.tok.Encode(s)) }

var (
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
	sentenceRe  = regexp.MustCompile(`[.!?]+(?:\s+|$)`)
)

// Split chunks text deterministically. Identical input always yields
// identical chunk boundaries.
func (c *Chunker) Split(text string) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var pieces []string
	var cur []string
	curTokens := 0
	flush := func() {
		if len(cur) > 0 {
			pieces = append(pieces, strings.Join(cur, "\n\n"))
			cur = nil
			curTokens = 0
		}
	}

	for _, para := range paragraphRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		n := c.CountTokens(para)
		if n > c.size {
			flush()
			pieces = append(pieces, c.splitLong(para)...)
			continue
		}
		if curTokens+n > c.size {
			flush()
		}
		cur = append(cur, para)
		curTokens += n
	}
	flush()

	chunks := make([]Chunk, 0, len(pieces))
	searchFrom := 0
	for i, piece := range pieces {
		start := strings.Index(text[searchFrom:], piece)
		if start >= 0 {
			start += searchFrom
		} else {
			start = searchFrom
		}
		end := start + len(piece)
		searchFrom = end

		content := piece
		if i > 0 && c.overlap > 0 {
			prev := c.tok.Encode(pieces[i-1])
			if len(prev) > c.overlap {
				prev = prev[len(prev)-c.overlap:]
			}
			tail := strings.TrimSpace(c.tok.Decode(prev))
			if tail != "" {
				content = tail + " " + piece
			}
		}

		chunks = append(chunks, Chunk{
			Content:    content,
			Index:      i,
			TokenCount: c.CountTokens(content),
			StartChar:  start,
			EndChar:    end,
		})
	}
	return chunks
}

// splitLong breaks an oversized paragraph at sentence boundaries, forcing a
// token-window split for any single sentence beyond the chunk size.
func (c *Chunker) splitLong(para string) []string {
	var out []string
	var cur []string
	curTokens := 0
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = nil
			curTokens = 0
		}
	}

	for _, sent := range splitSentences(para) {
		n := c.CountTokens(sent)
		if n > c.size {
			flush()
			out = append(out, c.splitWindows(sent)...)
			continue
		}
		if curTokens+n > c.size {
			flush()
		}
		cur = append(cur, sent)
		curTokens += n
	}
	flush()
	return out
}

// splitWindows slices a run of tokens into fixed-size windows stepping by
// size-overlap, so consecutive windows share the overlap tokens.
func (c *Chunker) splitWindows(s string) []string {
	tokens := c.tok.Encode(s)
	step := c.size - c.overlap
	if step < 1 {
		step = c.size
	}
	var out []string
	for start := 0; start < len(tokens); start += step {
		end := start + c.size
		if end > len(tokens) {
			end = len(tokens)
		}
		if piece := strings.TrimSpace(c.tok.Decode(tokens[start:end])); piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

func splitSentences(s string) []string {
	locs := sentenceRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return []string{s}
	}
	var out []string
	start := 0
	for _, loc := range locs {
		if sent := strings.TrimSpace(s[start:loc[1]]); sent != "" {
			out = append(out, sent)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
