package conversation

import (
	"context"
	"errors"

	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/customer"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/script"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/session"
)

// SystemInstructions is the fixed task description handed to the decision
// model on every turn.
const SystemInstructions = `You are a conversational AI agent for Alpha Insurance. Your single task is to guide a customer through a policy verification script by calling the 'continueConversation' tool.
- You have a 'mainScript' and an 'faq' to help you decide what to say.
- You MUST use the provided customer data to replace placeholders in the script like [customer name]. This is your most important task.
- Based on the user's response and conversation history, determine the most logical response and the next process from the mainScript.
- You MUST call the 'continueConversation' tool with the personalized 'responseToUser' and the correct 'nextProcess'. Do not respond with text.`

// Request carries everything the decision model needs for one turn.
type Request struct {
	Script         []script.Step
	FAQ            []script.FaqEntry
	History        []session.Turn
	Customer       customer.Context
	AgentName      string
	CurrentProcess string
	Utterance      string
}

// Decision is the structured output the model must produce: the exact
// personalized line to speak and the script process to move to.
type Decision struct {
	ResponseToUser string
	NextProcess    string
}

// ErrContractViolation marks a model response that did not take the form
// of exactly one continueConversation call with both fields present.
var ErrContractViolation = errors.New("decision contract violation")

// Decider produces the next Decision for a turn. Implementations wrap an
// external reasoning service; errors (including ErrContractViolation) are
// absorbed by the controller, never surfaced to the transport.
type Decider interface {
	Decide(ctx context.Context, req Request) (Decision, error)
}

// TextMessage is the outbound frame spoken to the caller. Last marks the
// utterance after which the call should end or hand off.
type TextMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
	Last  bool   `json:"last"`
}
