package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
)

// LLMClientConfig controls the comprehensive-extraction client.
type LLMClientConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// LLMClient implements Extractor against an external comprehensive
// extraction endpoint. The prompt lives server-side; this client only
// ships page content and decodes the structured records it gets back.
type LLMClient struct {
	cfg    LLMClientConfig
	client *http.Client
}

// NewLLMClient builds an LLMClient.
func NewLLMClient(cfg LLMClientConfig) (*LLMClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("extract.llm.endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &LLMClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Type implements Extractor.
func (c *LLMClient) Type() string { return TypeLLM }

type llmRequest struct {
	Model     string `json:"model,omitempty"`
	SourceURL string `json:"source_url"`
	HTML      string `json:"html,omitempty"`
	Markdown  string `json:"markdown,omitempty"`
}

type llmRecord struct {
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Country     string  `json:"country"`
	PostalCode  string  `json:"postal_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	MachineType string  `json:"machine_type"`
	Cost        string  `json:"cost"`
	Hours       string  `json:"hours"`
	Description string  `json:"description"`
	Website     string  `json:"website"`
	Phone       string  `json:"phone"`
	Status      string  `json:"status"`
}

type llmResponse struct {
	Records []llmRecord `json:"records"`
	Errors  []string    `json:"errors"`
}

// Extract implements Extractor. Markdown is preferred over raw HTML to
// keep request payloads small; HTML is sent only when no markdown exists.
func (c *LLMClient) Extract(input Input) Result {
	var result Result

	req := llmRequest{
		Model:     c.cfg.Model,
		SourceURL: input.SourceURL,
		Markdown:  input.Markdown,
	}
	if req.Markdown == "" {
		req.HTML = input.HTML
	}
	payload, err := json.Marshal(req)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("llm: marshal request: %v", err))
		return result
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("llm: build request: %v", err))
		return result
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("llm: %s: %v", input.SourceURL, err))
		return result
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		result.Errors = append(result.Errors, fmt.Sprintf("llm: %s: status %d", input.SourceURL, resp.StatusCode))
		return result
	}

	var decoded llmResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("llm: decode response: %v", err))
		return result
	}

	result.Errors = append(result.Errors, decoded.Errors...)
	for _, rec := range decoded.Records {
		result.Records = append(result.Records, booth.ExtractedBooth{
			Name:        rec.Name,
			Address:     rec.Address,
			City:        rec.City,
			State:       rec.State,
			Country:     rec.Country,
			PostalCode:  rec.PostalCode,
			Latitude:    rec.Latitude,
			Longitude:   rec.Longitude,
			MachineType: rec.MachineType,
			Cost:        rec.Cost,
			Hours:       rec.Hours,
			Description: rec.Description,
			Website:     rec.Website,
			Phone:       rec.Phone,
			Status:      recordStatus(rec.Status),
			SourceName:  input.SourceName,
			SourceURL:   input.SourceURL,
		})
	}
	return result
}

func recordStatus(s string) booth.RecordStatus {
	switch booth.RecordStatus(s) {
	case booth.RecordStatusActive, booth.RecordStatusInactive:
		return booth.RecordStatus(s)
	default:
		return booth.RecordStatusUnverified
	}
}
