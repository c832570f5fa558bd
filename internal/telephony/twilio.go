package telephony

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	intelligence "github.com/twilio/twilio-go/rest/intelligence/v2"
	"github.com/twilio/twilio-go/twiml"

	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/customer"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/script"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/store"
)

// Storage abstracts recording upload so the service can be tested without
// a live bucket.
type Storage interface {
	Upload(key, contentType string, data []byte) error
}

// Config holds the Twilio credentials and public addressing the service
// needs to originate calls and receive callbacks.
type Config struct {
	AccountSID             string
	AuthToken              string
	PhoneNumber            string
	PublicHost             string
	IntelligenceServiceSID string
}

// Service owns outbound call control: origination, the TwiML answer that
// connects the call to the relay, recording upload and analysis submission.
type Service struct {
	config     Config
	storage    Storage
	calls      *store.Calls
	client     *twilio.RestClient
	httpClient *http.Client

	steps     []script.Step
	customer  customer.Context
	agentName string
}

// New constructs the service. storage and calls may be nil; the recording
// and analysis paths then log and skip instead of failing requests.
func New(cfg Config, storage Storage, calls *store.Calls, steps []script.Step, cust customer.Context, agentName string) *Service {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Service{
		config:     cfg,
		storage:    storage,
		calls:      calls,
		client:     client,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		steps:      steps,
		customer:   cust,
		agentName:  agentName,
	}
}

// RegisterHandlers mounts the call-control routes. Twilio callbacks are
// signature-checked; /make-call is the operator-facing API.
func (s *Service) RegisterHandlers(e *echo.Echo) {
	e.POST("/make-call", s.handleMakeCall)
	e.POST("/twiml", s.handleTwiML, s.authMiddleware)
	e.POST("/recording-complete", s.handleRecordingComplete, s.authMiddleware)
	e.POST("/analysis-complete", s.handleAnalysisComplete, s.authMiddleware)
}

type makeCallRequest struct {
	CustomerNumber string `json:"customerNumber"`
}

func (s *Service) handleMakeCall(c echo.Context) error {
	var req makeCallRequest
	if err := c.Bind(&req); err != nil || req.CustomerNumber == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "customerNumber is required"})
	}

	log.Printf("telephony: initiating call to %s", req.CustomerNumber)
	params := &twilioApi.CreateCallParams{}
	params.SetTo(req.CustomerNumber)
	params.SetFrom(s.config.PhoneNumber)
	params.SetUrl(fmt.Sprintf("https://%s/twiml", s.config.PublicHost))
	params.SetRecord(true)
	params.SetRecordingStatusCallback(fmt.Sprintf("https://%s/recording-complete", s.config.PublicHost))

	if _, err := s.client.Api.CreateCall(params); err != nil {
		log.Printf("telephony: create call failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to initiate call"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": fmt.Sprintf("Call initiated to %s", req.CustomerNumber)})
}

// handleTwiML answers Twilio's webhook with a ConversationRelay connect.
// The welcome greeting is the Opening script line with placeholders filled
// directly; it is spoken before any session exists, so the substitution
// cannot be delegated to the decision model.
func (s *Service) handleTwiML(c echo.Context) error {
	greeting := "Hello, this is Alpha Insurance."
	if step, ok := script.FindStep(s.steps, script.ProcessOpening); ok {
		greeting = customer.FillPlaceholders(step.Line, s.customer, s.agentName)
	}

	relay := &twiml.VoiceConversationRelay{
		Url:             fmt.Sprintf("wss://%s/ws", s.config.PublicHost),
		WelcomeGreeting: greeting,
	}
	connect := &twiml.VoiceConnect{InnerElements: []twiml.Element{relay}}
	response, err := twiml.Voice([]twiml.Element{connect})
	if err != nil {
		return c.String(http.StatusInternalServerError, "failed to build TwiML")
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml")
	return c.String(http.StatusOK, response)
}

func (s *Service) handleRecordingComplete(c echo.Context) error {
	params := c.Get("twilioParams").(map[string]string)

	status := params["RecordingStatus"]
	recordingURL := params["RecordingUrl"]
	recordingSID := params["RecordingSid"]
	log.Printf("telephony: recording status %s, SID: %s", status, recordingSID)

	if status == "completed" && recordingSID != "" {
		filename := fmt.Sprintf("recording_%s_%d.wav", recordingSID, time.Now().Unix())
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if recordingURL != "" {
				if err := s.uploadRecording(ctx, recordingURL, filename); err != nil {
					log.Printf("telephony: upload recording failed: %v", err)
				} else {
					log.Printf("telephony: recording uploaded: %s", filename)
				}
			}
			if err := s.submitAnalysis(recordingSID); err != nil {
				log.Printf("telephony: submit analysis failed: %v", err)
			} else {
				log.Printf("telephony: analysis job submitted for %s", recordingSID)
			}
		}()
	}
	return c.String(http.StatusOK, "OK")
}

// handleAnalysisComplete persists whatever operator results the Voice
// Intelligence callback carries for the call.
func (s *Service) handleAnalysisComplete(c echo.Context) error {
	params := c.Get("twilioParams").(map[string]string)

	callSid := params["CallSid"]
	transcriptSid := params["TranscriptSid"]
	log.Printf("telephony: analysis complete, transcript %s call %s", transcriptSid, callSid)

	if s.calls == nil || callSid == "" {
		return c.String(http.StatusOK, "OK")
	}
	analysis := store.Analysis{
		CallSid:          callSid,
		Topic:            params["Topic"],
		Sentiment:        params["Sentiment"],
		PerformanceScore: params["PerformanceScore"],
	}
	if err := s.calls.SaveAnalysis(c.Request().Context(), analysis); err != nil {
		log.Printf("telephony: save analysis failed: %v", err)
	}
	return c.String(http.StatusOK, "OK")
}

// submitAnalysis queues a Voice Intelligence transcript for the customer
// channel of a completed recording.
func (s *Service) submitAnalysis(recordingSID string) error {
	if s.config.IntelligenceServiceSID == "" {
		log.Printf("telephony: no intelligence service configured; skipping analysis for %s", recordingSID)
		return nil
	}
	params := &intelligence.CreateTranscriptParams{}
	params.SetServiceSid(s.config.IntelligenceServiceSID)
	params.SetChannel(map[string]interface{}{
		"media_properties": map[string]interface{}{"source_sid": recordingSID},
	})
	if _, err := s.client.IntelligenceV2.CreateTranscript(params); err != nil {
		return fmt.Errorf("create transcript for %s: %w", recordingSID, err)
	}
	return nil
}

func (s *Service) uploadRecording(ctx context.Context, recordingURL, filename string) error {
	if s.storage == nil {
		log.Printf("telephony: no storage configured; skipping upload of %s", filename)
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL+".wav", nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download recording failed: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return s.storage.Upload(filename, "audio/wav", data)
}

// authMiddleware verifies the X-Twilio-Signature on callback requests and
// exposes the parsed form as twilioParams.
func (s *Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.config.AuthToken == "" {
			return c.String(http.StatusInternalServerError, "Missing TWILIO_AUTH_TOKEN")
		}

		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.String(http.StatusBadRequest, "Failed to read body")
		}
		formData, err := url.ParseQuery(string(body))
		if err != nil {
			return c.String(http.StatusBadRequest, "Failed to parse form")
		}
		params := make(map[string]string)
		for key, values := range formData {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}

		signature := c.Request().Header.Get("X-Twilio-Signature")
		requestURL := buildURL(c.Request(), c.Request().URL.Path)
		if !s.validateSignature(signature, requestURL, params) {
			return c.String(http.StatusUnauthorized, "Invalid signature")
		}

		c.Set("twilioParams", params)
		return next(c)
	}
}

func (s *Service) validateSignature(signature, url string, params map[string]string) bool {
	data := url
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data += k + params[k]
	}

	mac := hmac.New(sha1.New, []byte(s.config.AuthToken))
	mac.Write([]byte(data))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}

func buildURL(r *http.Request, path string) string {
	scheme := "https"
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
		if strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1") {
			scheme = "http"
		}
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, path)
}
