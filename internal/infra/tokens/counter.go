// File: internal/infra/tokens/counter.go
package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
)

// Counter estimates prompt size in tokens. The BPE table is loaded on first
// use; when it cannot be loaded (offline host) Count falls back to a
// four-characters-per-token approximation.
type Counter struct {
	encoding string
	log      *zerolog.Logger

	once   sync.Once
	enc    *tiktoken.Tiktoken
	loader func(encoding string) (*tiktoken.Tiktoken, error)
}

func NewCounter(encoding string, log *zerolog.Logger) *Counter {
	return &Counter{encoding: encoding, log: log, loader: tiktoken.GetEncoding}
}

// NewApproximate returns a counter that never loads a BPE table.
func NewApproximate() *Counter {
	c := &Counter{}
	c.once.Do(func() {})
	return c
}

func (c *Counter) Count(text string) int {
	c.once.Do(c.load)
	if c.enc == nil {
		return Approximate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

func (c *Counter) load() {
	if c.loader == nil || c.encoding == "" {
		return
	}
	enc, err := c.loader(c.encoding)
	if err != nil {
		if c.log != nil {
			c.log.Warn().Err(err).Str("encoding", c.encoding).Msg("token encoding unavailable, using approximation")
		}
		return
	}
	c.enc = enc
}

// Approximate is ceil(runes/4).
func Approximate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
