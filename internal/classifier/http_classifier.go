package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spec-kit/mailroom/internal/config"
	"github.com/spec-kit/mailroom/internal/domain"
)

// HTTPClassifier calls a JSON classification endpoint.
type HTTPClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClassifier builds a classifier from config.
func NewHTTPClassifier(cfg config.ClassifierConfig) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout()},
	}
}

type classifyRequest struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type classifyResponse struct {
	Classification string  `json:"classification"`
	TicketNumber   string  `json:"ticket_number,omitempty"`
	Confidence     float64 `json:"confidence"`
	Summary        string  `json:"summary,omitempty"`
	Category       string  `json:"category,omitempty"`
	Sentiment      string  `json:"sentiment,omitempty"`
}

// Classify posts the email to the external endpoint.
func (c *HTTPClassifier) Classify(ctx context.Context, email *domain.InboundEmail) (*Result, error) {
	payload, err := json.Marshal(classifyRequest{
		Sender:  email.Sender,
		Subject: email.Subject,
		Body:    email.BodyText,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var body classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	result := &Result{
		TicketNumber: body.TicketNumber,
		Confidence:   body.Confidence,
		Summary:      body.Summary,
		Category:     body.Category,
		Sentiment:    body.Sentiment,
	}
	if strings.EqualFold(body.Classification, string(ClassificationExisting)) {
		result.Classification = ClassificationExisting
	} else {
		result.Classification = ClassificationNew
	}
	return result, nil
}

var _ Classifier = (*HTTPClassifier)(nil)
