package audit

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/wardenworks/imgwarden/internal/models"
)

// Config holds OpenSearch connection settings for the audit index.
type Config struct {
	URL           string
	Username      string
	Password      string
	TLSSkipVerify bool
	Index         string
}

// OpenSearchSink indexes one audit document per invocation.
type OpenSearchSink struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchSink creates the sink and verifies cluster connectivity.
func NewOpenSearchSink(cfg Config) (*OpenSearchSink, error) {
	index := cfg.Index
	if index == "" {
		index = "imgwarden-audit"
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()
	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	return &OpenSearchSink{client: client, index: index}, nil
}

type auditDocument struct {
	InvocationID string    `json:"invocation_id"`
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	Status       string    `json:"status"`
	Cause        string    `json:"cause,omitempty"`
	AgeMS        int64     `json:"age_ms"`
	Adult        string    `json:"adult,omitempty"`
	Violence     string    `json:"violence,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Write indexes the invocation as an audit document keyed by invocation ID.
func (s *OpenSearchSink) Write(ctx context.Context, inv *models.Invocation) error {
	doc := auditDocument{
		InvocationID: inv.ID,
		Bucket:       inv.Bucket,
		Key:          inv.Key,
		Status:       string(inv.Status),
		Cause:        inv.Cause,
		AgeMS:        inv.AgeMS,
		Adult:        inv.Adult,
		Violence:     inv.Violence,
		ReceivedAt:   inv.ReceivedAt,
		CompletedAt:  inv.CompletedAt,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal audit document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      s.index,
		DocumentID: inv.ID,
		Body:       strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index audit document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("audit index returned error: %s", res.Status())
	}
	return nil
}
