package conversation

import (
	"context"
	"log"
	"time"

	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/customer"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/script"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/session"
)

// apologyLine is spoken when the decision path fails for any reason. It is
// always terminal so the caller is handed off instead of left hanging.
const apologyLine = "I'm sorry, I encountered a system error. Please try again."

const defaultDecideTimeout = 20 * time.Second

// Controller advances one call's scripted conversation per inbound event.
// All events for a call arrive sequentially on its transport connection,
// so session fields are mutated without per-session locking; only the
// registry itself is shared across calls.
type Controller struct {
	registry  *session.Registry
	decider   Decider
	steps     []script.Step
	faq       []script.FaqEntry
	customer  customer.Context
	agentName string

	// decideTimeout bounds each decision call so a hung model request
	// cannot stall the session forever.
	decideTimeout time.Duration
}

// NewController wires a controller over the shared session registry and
// the immutable script data selected at startup.
func NewController(reg *session.Registry, d Decider, steps []script.Step, faq []script.FaqEntry, cust customer.Context, agentName string) *Controller {
	return &Controller{
		registry:      reg,
		decider:       d,
		steps:         steps,
		faq:           faq,
		customer:      cust,
		agentName:     agentName,
		decideTimeout: defaultDecideTimeout,
	}
}

// HandleSetup registers a new session for the call. A duplicate setup for
// a live CallSid is logged and rejected; the existing session is kept.
func (c *Controller) HandleSetup(callSid string) {
	if _, err := c.registry.Create(callSid); err != nil {
		log.Printf("conversation: setup for %s ignored: %v", callSid, err)
		return
	}
	log.Printf("conversation: session created for call %s", callSid)
}

// HandlePrompt runs one turn of the state machine: look up the session,
// ask the decider for the next line, apply the decision, and return the
// outbound message. The second return is false when the event must be
// dropped (unknown CallSid) and no message sent.
//
// The session is not mutated until the decision succeeds, so a failed or
// malformed decision leaves CurrentProcess unchanged and the caller hears
// a single terminal apology instead.
func (c *Controller) HandlePrompt(ctx context.Context, callSid, utterance string) (TextMessage, bool) {
	sess, ok := c.registry.Get(callSid)
	if !ok {
		log.Printf("conversation: prompt for unknown call %s dropped", callSid)
		return TextMessage{}, false
	}

	req := Request{
		Script:         c.steps,
		FAQ:            c.faq,
		History:        sess.History,
		Customer:       c.customer,
		AgentName:      c.agentName,
		CurrentProcess: sess.CurrentProcess,
		Utterance:      utterance,
	}

	dctx, cancel := context.WithTimeout(ctx, c.decideTimeout)
	dec, err := c.decider.Decide(dctx, req)
	cancel()
	if err != nil {
		log.Printf("conversation: decision failed for call %s: %v", callSid, err)
		return TextMessage{Type: "text", Token: apologyLine, Last: true}, true
	}

	next := dec.NextProcess
	if _, found := script.FindStep(c.steps, next); !found {
		// The model named a process the script does not have. Speak the
		// line but hold the session at its previous process instead of
		// advancing to garbage.
		log.Printf("conversation: call %s decision names unknown process %q, holding at %q", callSid, next, sess.CurrentProcess)
		next = sess.CurrentProcess
	}

	sess.History = append(sess.History,
		session.Turn{Role: session.RoleUser, Text: utterance},
		session.Turn{Role: session.RoleAgent, Text: dec.ResponseToUser, NextProcess: dec.NextProcess},
	)
	sess.CurrentProcess = next

	last := script.IsTerminal(next)
	log.Printf("conversation: call %s -> %q (last=%v)", callSid, next, last)
	return TextMessage{Type: "text", Token: dec.ResponseToUser, Last: last}, true
}

// HandleInterrupt is the read-only diagnostic path for barge-in. When the
// last history entry is an agent decision, the committed utterance was only
// partially spoken; the gap is logged, not reconciled into history.
func (c *Controller) HandleInterrupt(callSid, spoken string) {
	sess, ok := c.registry.Get(callSid)
	if !ok {
		log.Printf("conversation: interrupt for unknown call %s dropped", callSid)
		return
	}
	if n := len(sess.History); n > 0 && sess.History[n-1].Role == session.RoleAgent {
		log.Printf("conversation: call %s interrupted mid-utterance, spoken part: %q", callSid, spoken)
	}
}

// HandleClose tears down the session. This is the only teardown path;
// closing an already-removed call is a no-op.
func (c *Controller) HandleClose(callSid string) {
	c.registry.Remove(callSid)
	log.Printf("conversation: session for call %s cleaned up", callSid)
}
