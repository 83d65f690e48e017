// Package live provides an inspection provider backed by a remote vision
// extraction service.
package live

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"acip/internal/inspection"
	dErrors "acip/pkg/domain-errors"
)

// Provider calls a vision extraction HTTP endpoint.
type Provider struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures the Provider.
type Option func(*Provider)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithLogger sets the logger for the provider.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New creates a live inspection provider against the given base URL.
func New(baseURL string, opts ...Option) *Provider {
	p := &Provider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type extractRequest struct {
	CaseID      string `json:"case_id"`
	DocumentRef string `json:"document_ref"`
}

type extractResponse struct {
	DocumentType string            `json:"document_type"`
	QualityScore float64           `json:"quality_score"`
	Fields       map[string]string `json:"fields"`
	Issues       []string          `json:"issues"`
}

// Inspect calls the extraction endpoint and applies the quality gate,
// field normalization, and validation to the response.
func (p *Provider) Inspect(ctx context.Context, req inspection.Request) (*inspection.Result, error) {
	body, err := json.Marshal(extractRequest{
		CaseID:      req.CaseID,
		DocumentRef: req.DocumentRef,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshal extraction request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build extraction request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeProviderFailure, "call extraction service")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeProviderFailure,
			fmt.Sprintf("extraction service returned status %d", resp.StatusCode))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeProviderFailure, "decode extraction response")
	}

	if out.QualityScore < inspection.MinQualityScore {
		if p.logger != nil {
			p.logger.WarnContext(ctx, "document failed quality gate",
				"case_id", req.CaseID,
				"quality_score", out.QualityScore,
			)
		}
		return &inspection.Result{
			Success:              false,
			QualityScore:         out.QualityScore,
			Issues:               []string{inspection.LowQualityIssue},
			RequiresResubmission: true,
			ResubmissionReason:   "The document image is blurry or low resolution. Please upload a clearer photo.",
			InspectedAt:          time.Now().UTC(),
		}, nil
	}

	fields := out.Fields
	if fields == nil {
		fields = make(map[string]string)
	}
	inspection.NormalizeIDNumber(fields)

	issues := append([]string{}, out.Issues...)
	issues = append(issues, inspection.ValidateFields(fields)...)

	return &inspection.Result{
		Success:      true,
		DocumentType: out.DocumentType,
		QualityScore: out.QualityScore,
		Fields:       fields,
		Issues:       issues,
		InspectedAt:  time.Now().UTC(),
	}, nil
}
