package reveal

// Cursor walks a text one character (rune) at a time.
type Cursor struct {
	runes []rune
	pos   int
}

func NewCursor(text string) *Cursor {
	return &Cursor{runes: []rune(text)}
}

// Next advances by one character and returns its index and the prefix
// revealed so far, including it. ok is false once the text is exhausted.
func (c *Cursor) Next() (index int, prefix string, ok bool) {
	if c.pos >= len(c.runes) {
		return c.pos, c.Prefix(), false
	}
	c.pos++
	return c.pos - 1, string(c.runes[:c.pos]), true
}

func (c *Cursor) Delivered() int {
	return c.pos
}

func (c *Cursor) Prefix() string {
	return string(c.runes[:c.pos])
}

func (c *Cursor) Len() int {
	return len(c.runes)
}

func (c *Cursor) Done() bool {
	return c.pos >= len(c.runes)
}
