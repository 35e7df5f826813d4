// Package dialogue drives the guided conversation: authentication, the main
// menu, and the transfer and collection sub-flows, with simulated
// authorization failures and recovery paths.
package dialogue

import "github.com/rcastellanos/tavi/internal/payments"

// Step is the single active state of a session's conversation.
type Step string

const (
	StepWelcome       Step = "welcome"
	StepAuth          Step = "auth"
	StepMenu          Step = "menu"
	StepPickRecipient Step = "transfer.pickRecipient"
	StepAmount        Step = "transfer.amount"
	StepConcept       Step = "transfer.concept"
	StepConfirm       Step = "transfer.confirm"
	StepAuthorize     Step = "transfer.authorize"
	StepProcessing    Step = "processing"
	StepSuccess       Step = "success"
	StepInsufficient  Step = "error.insufficient"
)

// Speaker tags who produced a conversation turn.
type Speaker string

const (
	SpeakerAssistant Speaker = "assistant"
	SpeakerUser      Speaker = "user"
)

// Option is one discrete quick-reply choice. The UI invokes the selection
// callback with the chosen id exactly once per interaction.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Prompt tells the rendering layer which input widget a turn expects.
type Prompt string

const (
	PromptPIN       Prompt = "pin"
	PromptAmount    Prompt = "amount"
	PromptConcept   Prompt = "concept"
	PromptRecipient Prompt = "recipient"
	PromptContact   Prompt = "contact"
	PromptCollect   Prompt = "collect"
)

// Turn is one opaque conversation payload emitted to the render sink. Turns
// appear in the exact order the controller produces them.
type Turn struct {
	Speaker Speaker                   `json:"speaker"`
	Text    string                    `json:"text,omitempty"`
	Alert   bool                      `json:"alert,omitempty"`
	Options []Option                  `json:"options,omitempty"`
	Prompt  Prompt                    `json:"prompt,omitempty"`
	Prefill string                    `json:"prefill,omitempty"`
	Collect *payments.CollectPayload  `json:"collect,omitempty"`
	Receipt *payments.Receipt         `json:"receipt,omitempty"`
	Step    Step                      `json:"step"`
}

// Sink receives the ordered sequence of conversation turns. The controller
// does not know how turns are displayed.
type Sink interface {
	Push(Turn)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Turn)

func (f SinkFunc) Push(t Turn) { f(t) }
