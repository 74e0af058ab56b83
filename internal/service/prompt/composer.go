package prompt

import (
	"strings"

	"github.com/zhouzirui/haven/backend/internal/model/chat"
)

// DefaultSystemInstruction frames every generation request.
const DefaultSystemInstruction = `You are a compassionate mental-health support assistant.
Your goals:
- Be empathetic, kind, and supportive.
- Never diagnose or prescribe medication.
- Encourage healthy coping strategies.
- Respond in 2-4 sentences maximum.`

const (
	contextHeader = "Conversation context:"
	userLabel     = "User"
	assistantCue  = "Assistant (empathetic):"
)

// Composer renders a context window and a new user message into the single
// text prompt sent to the generation provider.
type Composer struct {
	instruction string
}

// NewComposer returns a composer using instruction, or DefaultSystemInstruction
// when instruction is blank.
func NewComposer(instruction string) *Composer {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		instruction = DefaultSystemInstruction
	}
	return &Composer{instruction: instruction}
}

// Instruction returns the system instruction block in use.
func (c *Composer) Instruction() string {
	return c.instruction
}

// Compose lays out the instruction, one "{role}: {text}" line per context turn
// in order, the user message and the trailing assistant cue.
func (c *Composer) Compose(context []chat.Turn, userMessage string) string {
	var b strings.Builder
	b.WriteString(c.instruction)
	b.WriteString("\n\n")
	b.WriteString(contextHeader)
	b.WriteByte('\n')
	for _, turn := range context {
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteByte('\n')
	}
	b.WriteString(userLabel)
	b.WriteString(": ")
	b.WriteString(userMessage)
	b.WriteByte('\n')
	b.WriteString(assistantCue)
	return b.String()
}

var defaultComposer = NewComposer("")

// Compose renders a prompt with the default system instruction.
func Compose(context []chat.Turn, userMessage string) string {
	return defaultComposer.Compose(context, userMessage)
}
