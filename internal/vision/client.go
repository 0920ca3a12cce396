// Package vision is the client for the external image-safety classifier.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Annotator requests safety classification for a stored image.
type Annotator interface {
	AnnotateSafeSearch(ctx context.Context, imageURI string) (*SafeSearch, error)
}

// Client implements Annotator against the classifier's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a classifier client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type annotateRequest struct {
	Requests []annotateItem `json:"requests"`
}

type annotateItem struct {
	Image    imageRef  `json:"image"`
	Features []feature `json:"features"`
}

type imageRef struct {
	Source imageSource `json:"source"`
}

type imageSource struct {
	ImageURI string `json:"imageUri"`
}

type feature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []annotateResult `json:"responses"`
}

type annotateResult struct {
	SafeSearch *safeSearchAnnotation `json:"safeSearchAnnotation,omitempty"`
	Error      *itemError            `json:"error,omitempty"`
}

type safeSearchAnnotation struct {
	Adult    string `json:"adult"`
	Violence string `json:"violence"`
}

type itemError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// AnnotateSafeSearch asks the classifier for safety scores on the image
// named by imageURI. One call per event; no batching. A per-item error in
// the response is returned as *AnnotationError; transport and protocol
// failures are returned as plain wrapped errors.
func (c *Client) AnnotateSafeSearch(ctx context.Context, imageURI string) (*SafeSearch, error) {
	reqBody := annotateRequest{
		Requests: []annotateItem{
			{
				Image:    imageRef{Source: imageSource{ImageURI: imageURI}},
				Features: []feature{{Type: "SAFE_SEARCH_DETECTION"}},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images:annotate", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, fmt.Errorf("classifier response status %d: %s", resp.StatusCode, errBody["message"])
	}

	var result annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(result.Responses) == 0 {
		return nil, ErrNoAnnotations
	}

	item := result.Responses[0]
	if item.Error != nil {
		return nil, &AnnotationError{Code: item.Error.Code, Message: item.Error.Message}
	}
	if item.SafeSearch == nil {
		return nil, ErrNoAnnotations
	}

	return &SafeSearch{
		Adult:    ParseLikelihood(item.SafeSearch.Adult),
		Violence: ParseLikelihood(item.SafeSearch.Violence),
	}, nil
}
