package vtline

import (
	"unicode"

	"go.uber.org/zap"
)

// CompletionProvider returns candidate completions for a token. Every
// candidate is a full replacement for the token.
type CompletionProvider interface {
	Complete(token string) ([]string, error)
}

type CompletionProviderFunc func(token string) ([]string, error)

func (f CompletionProviderFunc) Complete(token string) ([]string, error) {
	return f(token)
}

// tokenBounds returns the offset at which the token ending at cursor starts
// and whether it is the first token of the line. Whitespace separates
// tokens except inside quotes or after a backslash.
func tokenBounds(line []rune, cursor int) (start int, first bool) {
	cursor = clamp(cursor, 0, len(line))
	var quote rune
	escaped := false
	for i := 0; i < cursor; i++ {
		c := line[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case unicode.IsSpace(c):
			start = i + 1
		}
	}

	first = true
	for _, c := range line[:start] {
		if !unicode.IsSpace(c) {
			first = false
			break
		}
	}
	return start, first
}

// completionEngine tracks consecutive presses of the completion key. The
// first press completes as far as possible, the second lists every
// candidate and further presses cycle through them.
type completionEngine struct {
	first  CompletionProvider
	other  CompletionProvider
	logger *zap.Logger

	timesPressed int
	candidates   []string
	tokenStart   int
	selected     int
	listing      bool

	layout suggestionLayout
}

func newCompletionEngine(first, other CompletionProvider, logger *zap.Logger) *completionEngine {
	return &completionEngine{
		first:    first,
		other:    other,
		logger:   logger,
		selected: -1,
	}
}

// reset forgets the current candidates, leaving the buffer as it is.
func (c *completionEngine) reset() {
	c.timesPressed = 0
	c.candidates = nil
	c.tokenStart = 0
	c.selected = -1
	c.listing = false
}

func (c *completionEngine) active() bool {
	return c.timesPressed != 0
}

// complete handles one press of the completion key (reverse for Backtab).
// It reports whether the press found nothing to complete.
func (c *completionEngine) complete(b *Buffer, reverse bool) (nothing bool) {
	c.timesPressed++

	switch {
	case c.timesPressed == 1:
		return c.completePrefix(b)
	case c.timesPressed == 2:
		c.listing = true
		return false
	}

	n := len(c.candidates)
	switch {
	case reverse && c.selected < 0:
		c.selected = n - 1
	case reverse:
		c.selected = (c.selected - 1 + n) % n
	default:
		c.selected = (c.selected + 1) % n
	}
	c.replaceToken(b, c.candidates[c.selected])
	return false
}

func (c *completionEngine) completePrefix(b *Buffer) bool {
	start, first := tokenBounds(b.chars, b.Cursor())
	token := b.Slice(start, b.Cursor())

	provider := c.other
	if first {
		provider = c.first
	}
	if provider == nil {
		c.reset()
		return false
	}

	candidates, err := provider.Complete(token)
	if err != nil {
		c.logger.Warn("completion provider failed", zap.String("token", token), zap.Error(err))
		candidates = nil
	}

	c.tokenStart = start
	c.candidates = candidates
	c.selected = -1

	switch len(candidates) {
	case 0:
		c.reset()
		return true
	case 1:
		c.replaceToken(b, candidates[0])
		c.reset()
		return false
	}

	prefix := candidates[0]
	for _, candidate := range candidates[1:] {
		prefix = CutMismatchingChars(prefix, candidate, 0)
	}

	// Insert only what extends the typed token.
	typed := []rune(token)
	common := []rune(prefix)
	if len(common) > len(typed) && CutMismatchingChars(prefix, token, 0) == token {
		b.InsertString(string(common[len(typed):]))
	}
	return false
}

// replaceToken replaces [tokenStart, cursor) with text.
func (c *completionEngine) replaceToken(b *Buffer, text string) {
	b.DeleteRange(c.tokenStart, b.Cursor())
	b.SetCursor(c.tokenStart)
	b.InsertString(text)
}

// suggestionLines renders the candidate list for the current frame, or
// nil when no list is shown.
func (c *completionEngine) suggestionLines(columns, lines, promptRows int) []string {
	if !c.listing || len(c.candidates) == 0 {
		return nil
	}
	c.layout.paginate(c.candidates, columns, lines, promptRows)
	return c.layout.render(c.candidates, c.selected, columns)
}
