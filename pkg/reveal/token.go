package reveal

import "sync/atomic"

// Token is a one-way stop flag shared between the party driving a reveal and
// the party that wants it to stop. The zero value is ready to use.
type Token struct {
	cancelled atomic.Bool
}

func NewToken() *Token {
	return &Token{}
}

// Cancel sets the flag. It reports whether this call was the one that set it.
func (t *Token) Cancel() bool {
	if t == nil {
		return false
	}
	return t.cancelled.CompareAndSwap(false, true)
}

func (t *Token) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}
