package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/conversation"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/session"
)

// continueConversationTool is the single function the model is required to
// call on every turn.
const continueConversationTool = "continueConversation"

// GeminiClient implements conversation.Decider against the Gemini
// generateContent REST API with forced tool calling.
type GeminiClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
}

// Gemini API wire format. The API uses camelCase field names.
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text         string              `json:"text,omitempty"`
	FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiFunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiToolConfig struct {
	FunctionCallingConfig struct {
		Mode                 string   `json:"mode"`
		AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
	} `json:"functionCallingConfig"`
}

type generateContentRequest struct {
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	Contents          []geminiContent   `json:"contents"`
	Tools             []geminiTool      `json:"tools,omitempty"`
	ToolConfig        *geminiToolConfig `json:"toolConfig,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// NewGeminiClient builds a decider for the given API key and model id.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		HTTPClient: &http.Client{Timeout: 25 * time.Second},
		APIKey:     apiKey,
		Model:      model,
	}
}

// Decide sends one turn to Gemini and parses the required single
// continueConversation call. Any other shape of response is reported as
// conversation.ErrContractViolation.
func (c *GeminiClient) Decide(ctx context.Context, req conversation.Request) (conversation.Decision, error) {
	if c.APIKey == "" {
		return conversation.Decision{}, fmt.Errorf("gemini api key missing")
	}
	endpoint := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", c.Model)

	body := generateContentRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: conversation.SystemInstructions}}},
		Contents:          append(historyContents(req.History), geminiContent{Role: "user", Parts: []geminiPart{{Text: buildTurnPrompt(req)}}}),
		Tools: []geminiTool{{FunctionDeclarations: []geminiFunctionDeclaration{{
			Name:        continueConversationTool,
			Description: "Call this tool to provide the agent's next line and the next conversational process.",
			Parameters: map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"responseToUser": map[string]any{"type": "STRING", "description": "The exact, personalized sentence the agent should say to the user."},
					"nextProcess":    map[string]any{"type": "STRING", "description": "The name of the next process from the mainScript."},
				},
				"required": []string{"responseToUser", "nextProcess"},
			},
		}}}},
		ToolConfig: forcedToolConfig(),
	}

	reqBody, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return conversation.Decision{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return conversation.Decision{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return conversation.Decision{}, fmt.Errorf("gemini error: status=%d body=%s", resp.StatusCode, string(b))
	}

	var gr generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return conversation.Decision{}, err
	}
	return parseDecision(gr)
}

func forcedToolConfig() *geminiToolConfig {
	tc := &geminiToolConfig{}
	tc.FunctionCallingConfig.Mode = "ANY"
	tc.FunctionCallingConfig.AllowedFunctionNames = []string{continueConversationTool}
	return tc
}

// parseDecision enforces the output contract: exactly one functionCall
// part naming continueConversation, with both arguments present.
func parseDecision(gr generateContentResponse) (conversation.Decision, error) {
	if len(gr.Candidates) == 0 {
		return conversation.Decision{}, fmt.Errorf("%w: no candidates", conversation.ErrContractViolation)
	}
	var calls []*geminiFunctionCall
	for _, p := range gr.Candidates[0].Content.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, p.FunctionCall)
		}
	}
	if len(calls) != 1 {
		return conversation.Decision{}, fmt.Errorf("%w: expected 1 function call, got %d", conversation.ErrContractViolation, len(calls))
	}
	call := calls[0]
	if call.Name != continueConversationTool {
		return conversation.Decision{}, fmt.Errorf("%w: unexpected tool %q", conversation.ErrContractViolation, call.Name)
	}
	response, _ := call.Args["responseToUser"].(string)
	next, _ := call.Args["nextProcess"].(string)
	if strings.TrimSpace(response) == "" || strings.TrimSpace(next) == "" {
		return conversation.Decision{}, fmt.Errorf("%w: missing responseToUser or nextProcess", conversation.ErrContractViolation)
	}
	return conversation.Decision{ResponseToUser: response, NextProcess: next}, nil
}

// historyContents replays the session history as Gemini chat turns: user
// utterances as plain text, agent turns as the functionCall the model made.
func historyContents(history []session.Turn) []geminiContent {
	var contents []geminiContent
	for _, t := range history {
		switch t.Role {
		case session.RoleUser:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: t.Text}}})
		case session.RoleAgent:
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{FunctionCall: &geminiFunctionCall{
				Name: continueConversationTool,
				Args: map[string]any{"responseToUser": t.Text, "nextProcess": t.NextProcess},
			}}}})
		}
	}
	return contents
}

// buildTurnPrompt renders the per-turn context block the model reasons
// over. Script, FAQ, history and customer data are embedded as JSON.
func buildTurnPrompt(req conversation.Request) string {
	scriptJSON, _ := json.Marshal(req.Script)
	faqJSON, _ := json.Marshal(req.FAQ)
	historyJSON, _ := json.Marshal(req.History)
	customerJSON, _ := json.Marshal(req.Customer)

	var b strings.Builder
	fmt.Fprintf(&b, "Main Script: %s\n", scriptJSON)
	fmt.Fprintf(&b, "FAQ: %s\n", faqJSON)
	fmt.Fprintf(&b, "Conversation History: %s\n", historyJSON)
	fmt.Fprintf(&b, "Customer Data: %s\n", customerJSON)
	fmt.Fprintf(&b, "Agent Name: %s\n", req.AgentName)
	fmt.Fprintf(&b, "Current Process: %q\n", req.CurrentProcess)
	fmt.Fprintf(&b, "Customer's Latest Response: %q\n", req.Utterance)
	b.WriteString("Task: Adhere to all rules and call the continueConversation tool.")
	return b.String()
}
