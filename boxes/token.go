// Package boxes provides a small reference pipeline built on signals: a
// generator that emits tokens, stages that delay them and a sink that
// collects them.
package boxes

import (
	"fmt"

	"github.com/sarchlab/attila/signal"
)

// A Token is the payload that travels through the reference pipeline.
type Token struct {
	signal.Object

	ID        int
	CreatedAt uint64
	Hops      int
}

// NewToken creates a token. The ID becomes its cookie.
func NewToken(id int, cycle uint64) *Token {
	t := &Token{
		ID:        id,
		CreatedAt: cycle,
	}

	t.AddCookie(uint32(id))
	t.SetColor(uint32(id % 8))
	t.SetInfo(fmt.Sprintf("token %d", id))

	return t
}

// String returns a short description of the token.
func (t *Token) String() string {
	return fmt.Sprintf("Token(%d, created %d, %d hops)",
		t.ID, t.CreatedAt, t.Hops)
}
