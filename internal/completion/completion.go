// Package completion talks to the hosted chat model.
package completion

import "context"

// Speaker identifies who said a turn in the prompt transcript.
type Speaker string

const (
	SpeakerHuman Speaker = "human"
	SpeakerAI    Speaker = "ai"
)

// Turn is one role-tagged utterance of prior conversation.
type Turn struct {
	Speaker Speaker
	Text    string
}

// Prompt is everything sent to the model for one exchange.
type Prompt struct {
	System      string
	History     []Turn
	Question    string
	Temperature float64
}

// Provider generates an answer for a prompt.
type Provider interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// StudyAssistantPrompt restricts the model to academic tutoring.
const StudyAssistantPrompt = `
You are a strict Academic Study Assistant.

Rules:
- Only answer academic questions.
- If question is not study-related, respond:
  "I am designed for academic learning support only."

Teaching Method:
1. Define the concept briefly.
2. Explain clearly in simple terms.
3. Show step-by-step reasoning when solving problems.
4. Provide an example if useful.
5. Encourage understanding.

Tone:
Professional, structured, clear.
No emojis.
No casual conversation.
`
