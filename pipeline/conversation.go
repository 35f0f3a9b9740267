package pipeline

import "context"

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the running stage conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Collaborator produces a completion for the conversation so far. The system
// prompt travels separately from the turns because providers place it
// differently on the wire.
type Collaborator interface {
	Complete(ctx context.Context, system string, turns []Turn) (string, error)
}

// Conversation is the append-only turn history shared by every prompt within
// a stage. Stages reset it at their boundary so context does not leak across
// them.
type Conversation struct {
	turns []Turn
}

func NewConversation() *Conversation { return &Conversation{} }

func (c *Conversation) Append(role Role, content string) {
	c.turns = append(c.turns, Turn{Role: role, Content: content})
}

// Turns returns a copy of the history in order.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Len() int { return len(c.turns) }

func (c *Conversation) Reset() { c.turns = c.turns[:0] }
