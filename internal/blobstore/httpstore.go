package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPStore implements Store against the blob-gateway HTTP API.
type HTTPStore struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPStore creates a blob-gateway client for the given base URL.
func NewHTTPStore(baseURL string, timeout time.Duration) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *HTTPStore) objectURL(bucket, key string) string {
	return fmt.Sprintf("%s/api/v1/buckets/%s/objects/%s",
		s.baseURL, url.PathEscape(bucket), url.PathEscape(key))
}

// Get fetches the object's bytes; the content type comes from the response
// header.
func (s *HTTPStore) Get(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(bucket, key), nil)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.httpClient.Do(request)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ObjectInfo{}, fmt.Errorf("get %s/%s: %w", bucket, key, ErrObjectNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		var errBody map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, ObjectInfo{}, fmt.Errorf("blob gateway response status %d: %s", resp.StatusCode, errBody["message"])
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("read body: %w", err)
	}

	info := ObjectInfo{
		ContentType: resp.Header.Get("Content-Type"),
		Size:        int64(len(data)),
	}
	return data, info, nil
}

// Put writes the object's bytes under bucket/key with the given content
// type.
func (s *HTTPStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPut, s.objectURL(bucket, key), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		var errBody map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("blob gateway response status %d: %s", resp.StatusCode, errBody["message"])
	}

	return nil
}
