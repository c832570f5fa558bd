package conversation

import (
	"context"
	"testing"

	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/customer"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/script"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/session"
)

type fakeDecider struct {
	decision Decision
	err      error
	lastReq  Request
	calls    int
}

func (f *fakeDecider) Decide(ctx context.Context, req Request) (Decision, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return Decision{}, f.err
	}
	return f.decision, nil
}

func newTestController(d Decider) (*Controller, *session.Registry) {
	reg := session.NewRegistry()
	steps, faq := script.SelectLanguage(script.LanguageEnglish)
	c := NewController(reg, d, steps, faq, customer.Default(), customer.DefaultAgentName)
	return c, reg
}

func TestController_PromptAdvancesProcess(t *testing.T) {
	d := &fakeDecider{decision: Decision{ResponseToUser: "Great, thanks for confirming!", NextProcess: "Purpose of Call"}}
	c, reg := newTestController(d)

	c.HandleSetup("CA123")
	msg, ok := c.HandlePrompt(context.Background(), "CA123", "Yes this is Juan")
	if !ok {
		t.Fatalf("expected an outbound message")
	}
	if msg.Type != "text" || msg.Token != "Great, thanks for confirming!" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Last {
		t.Fatalf("non-terminal process must yield last=false")
	}

	sess, _ := reg.Get("CA123")
	if sess.CurrentProcess != "Purpose of Call" {
		t.Fatalf("expected process advanced, got %q", sess.CurrentProcess)
	}
	if len(sess.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(sess.History))
	}
	if sess.History[0].Role != session.RoleUser || sess.History[0].Text != "Yes this is Juan" {
		t.Fatalf("unexpected user turn: %+v", sess.History[0])
	}
	if sess.History[1].Role != session.RoleAgent || sess.History[1].NextProcess != "Purpose of Call" {
		t.Fatalf("unexpected agent turn: %+v", sess.History[1])
	}
}

func TestController_TerminalProcessesSetLast(t *testing.T) {
	for _, terminal := range []string{script.ProcessClosing, script.ProcessHandoff} {
		d := &fakeDecider{decision: Decision{ResponseToUser: "Thank you, goodbye", NextProcess: terminal}}
		c, reg := newTestController(d)
		c.HandleSetup("CA9")
		msg, ok := c.HandlePrompt(context.Background(), "CA9", "ok")
		if !ok || !msg.Last {
			t.Fatalf("process %q: expected last=true, got %+v ok=%v", terminal, msg, ok)
		}
		sess, _ := reg.Get("CA9")
		if sess.CurrentProcess != terminal {
			t.Fatalf("expected %q, got %q", terminal, sess.CurrentProcess)
		}
	}
}

func TestController_HistoryGrowsTwoPerPrompt(t *testing.T) {
	d := &fakeDecider{decision: Decision{ResponseToUser: "ok", NextProcess: "Verification"}}
	c, reg := newTestController(d)
	c.HandleSetup("CA5")
	for i := 0; i < 3; i++ {
		if _, ok := c.HandlePrompt(context.Background(), "CA5", "hello"); !ok {
			t.Fatalf("prompt %d dropped", i)
		}
	}
	sess, _ := reg.Get("CA5")
	if len(sess.History) != 6 {
		t.Fatalf("expected 6 history entries after 3 prompts, got %d", len(sess.History))
	}
}

func TestController_UnknownCallDropped(t *testing.T) {
	d := &fakeDecider{decision: Decision{ResponseToUser: "x", NextProcess: "Closing"}}
	c, _ := newTestController(d)
	if _, ok := c.HandlePrompt(context.Background(), "CA404", "hello?"); ok {
		t.Fatalf("expected prompt for unknown call to be dropped")
	}
	if d.calls != 0 {
		t.Fatalf("decider must not be invoked for unknown calls")
	}
}

func TestController_ContractViolationYieldsTerminalApology(t *testing.T) {
	d := &fakeDecider{err: ErrContractViolation}
	c, reg := newTestController(d)
	c.HandleSetup("CA7")

	msg, ok := c.HandlePrompt(context.Background(), "CA7", "hi")
	if !ok {
		t.Fatalf("expected an apology message")
	}
	if !msg.Last {
		t.Fatalf("apology must be terminal")
	}
	if msg.Token != apologyLine {
		t.Fatalf("unexpected apology token: %q", msg.Token)
	}

	// Session must be left untouched.
	sess, _ := reg.Get("CA7")
	if sess.CurrentProcess != script.ProcessOpening {
		t.Fatalf("process changed on failed decision: %q", sess.CurrentProcess)
	}
	if len(sess.History) != 0 {
		t.Fatalf("history appended on failed decision: %d entries", len(sess.History))
	}
}

func TestController_UnknownNextProcessHeld(t *testing.T) {
	d := &fakeDecider{decision: Decision{ResponseToUser: "Sure thing.", NextProcess: "Not A Real Process"}}
	c, reg := newTestController(d)
	c.HandleSetup("CA8")

	msg, ok := c.HandlePrompt(context.Background(), "CA8", "huh")
	if !ok {
		t.Fatalf("expected the line to still be spoken")
	}
	if msg.Token != "Sure thing." || msg.Last {
		t.Fatalf("unexpected message: %+v", msg)
	}

	sess, _ := reg.Get("CA8")
	if sess.CurrentProcess != script.ProcessOpening {
		t.Fatalf("session advanced to unknown process: %q", sess.CurrentProcess)
	}
	// The exchange is still recorded as the customer heard it.
	if len(sess.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(sess.History))
	}
}

func TestController_DuplicateSetupKeepsSession(t *testing.T) {
	d := &fakeDecider{decision: Decision{ResponseToUser: "ok", NextProcess: "Verification"}}
	c, reg := newTestController(d)
	c.HandleSetup("CA2")
	if _, ok := c.HandlePrompt(context.Background(), "CA2", "yes"); !ok {
		t.Fatalf("prompt dropped")
	}
	c.HandleSetup("CA2")
	sess, _ := reg.Get("CA2")
	if sess.CurrentProcess != "Verification" || len(sess.History) != 2 {
		t.Fatalf("duplicate setup reset session: process=%q history=%d", sess.CurrentProcess, len(sess.History))
	}
}

func TestController_CloseTearsDown(t *testing.T) {
	d := &fakeDecider{decision: Decision{ResponseToUser: "ok", NextProcess: "Closing"}}
	c, reg := newTestController(d)
	c.HandleSetup("CA3")
	c.HandleClose("CA3")
	if reg.Len() != 0 {
		t.Fatalf("expected no sessions after close")
	}
	if _, ok := c.HandlePrompt(context.Background(), "CA3", "anyone?"); ok {
		t.Fatalf("prompt after close must be a no-op")
	}
	// Closing twice must not panic or error.
	c.HandleClose("CA3")
}

func TestController_DecisionRequestCarriesContext(t *testing.T) {
	d := &fakeDecider{decision: Decision{ResponseToUser: "a", NextProcess: "Verification"}}
	c, _ := newTestController(d)
	c.HandleSetup("CA4")

	c.HandlePrompt(context.Background(), "CA4", "first")
	c.HandlePrompt(context.Background(), "CA4", "second")

	req := d.lastReq
	if req.Utterance != "second" {
		t.Fatalf("unexpected utterance: %q", req.Utterance)
	}
	if req.CurrentProcess != "Verification" {
		t.Fatalf("expected current process from first turn, got %q", req.CurrentProcess)
	}
	if len(req.History) != 2 {
		t.Fatalf("expected prior history in request, got %d entries", len(req.History))
	}
	if len(req.Script) == 0 || len(req.FAQ) == 0 {
		t.Fatalf("script and faq must be passed through")
	}
	if req.AgentName == "" || req.Customer.Name == "" {
		t.Fatalf("agent and customer identity must be passed through")
	}
}

func TestController_InterruptLeavesStateUntouched(t *testing.T) {
	d := &fakeDecider{decision: Decision{ResponseToUser: "a long line", NextProcess: "Verification"}}
	c, reg := newTestController(d)
	c.HandleSetup("CA6")
	c.HandlePrompt(context.Background(), "CA6", "hello")

	before, _ := reg.Get("CA6")
	histLen := len(before.History)
	proc := before.CurrentProcess

	c.HandleInterrupt("CA6", "a long")
	c.HandleInterrupt("CA404", "nobody")

	after, _ := reg.Get("CA6")
	if len(after.History) != histLen || after.CurrentProcess != proc {
		t.Fatalf("interrupt mutated session state")
	}
}
