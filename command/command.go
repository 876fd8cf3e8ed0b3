// Package command defines the unit of work tracked through the
// streaming queues.
package command

// Command is one line of machine-directed text with its lifecycle state.
type Command struct {
	Number int
	Text   string

	Sent    bool
	Skipped bool

	Response    string
	HasResponse bool
}

func (c *Command) SetResponse(r string) {
	c.Response = r
	c.HasResponse = true
}

// A Creator allocates commands with monotonically increasing sequence
// numbers. Numbers are never reused until Reset.
type Creator struct {
	next int
}

func (cr *Creator) Create(text string) *Command {
	c := &Command{Number: cr.next, Text: text}
	cr.next++
	return c
}

// Reset restarts numbering from zero. Only done on connection close.
func (cr *Creator) Reset() {
	cr.next = 0
}
