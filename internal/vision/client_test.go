package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnnotateSafeSearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images:annotate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		var req annotateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Requests) != 1 {
			t.Fatalf("expected 1 request item, got %d", len(req.Requests))
		}
		if got := req.Requests[0].Image.Source.ImageURI; got != "blob://uploads/cat.jpg" {
			t.Errorf("imageUri = %q", got)
		}
		if got := req.Requests[0].Features[0].Type; got != "SAFE_SEARCH_DETECTION" {
			t.Errorf("feature type = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(annotateResponse{
			Responses: []annotateResult{
				{SafeSearch: &safeSearchAnnotation{Adult: "VERY_LIKELY", Violence: "UNLIKELY"}},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second)
	result, err := client.AnnotateSafeSearch(context.Background(), "blob://uploads/cat.jpg")
	if err != nil {
		t.Fatalf("AnnotateSafeSearch() error = %v", err)
	}

	if result.Adult != VeryLikely {
		t.Errorf("Adult = %v, want VeryLikely", result.Adult)
	}
	if result.Violence != Unlikely {
		t.Errorf("Violence = %v, want Unlikely", result.Violence)
	}
}

func TestAnnotateSafeSearch_PerItemError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(annotateResponse{
			Responses: []annotateResult{
				{Error: &itemError{Code: 7, Message: "image too large"}},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second)
	_, err := client.AnnotateSafeSearch(context.Background(), "blob://uploads/huge.jpg")

	var annErr *AnnotationError
	if !errors.As(err, &annErr) {
		t.Fatalf("error = %v, want *AnnotationError", err)
	}
	if annErr.Code != 7 || annErr.Message != "image too large" {
		t.Errorf("AnnotationError = %+v", annErr)
	}
}

func TestAnnotateSafeSearch_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(annotateResponse{})
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second)
	_, err := client.AnnotateSafeSearch(context.Background(), "blob://uploads/cat.jpg")
	if !errors.Is(err, ErrNoAnnotations) {
		t.Errorf("error = %v, want ErrNoAnnotations", err)
	}
}

func TestAnnotateSafeSearch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"backend unavailable"}`, http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second)
	_, err := client.AnnotateSafeSearch(context.Background(), "blob://uploads/cat.jpg")
	if err == nil {
		t.Fatal("AnnotateSafeSearch() error = nil, want error")
	}
	var annErr *AnnotationError
	if errors.As(err, &annErr) {
		t.Errorf("transport failure must not be an *AnnotationError, got %v", err)
	}
}

func TestAnnotateSafeSearch_ConnectionRefused(t *testing.T) {
	// Point the client at a closed server to force a transport error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := New(server.URL, time.Second)
	_, err := client.AnnotateSafeSearch(context.Background(), "blob://uploads/cat.jpg")
	if err == nil {
		t.Fatal("AnnotateSafeSearch() error = nil, want transport error")
	}
}

func TestParseLikelihood(t *testing.T) {
	tests := []struct {
		in   string
		want Likelihood
	}{
		{"VERY_UNLIKELY", VeryUnlikely},
		{"UNLIKELY", Unlikely},
		{"POSSIBLE", Possible},
		{"LIKELY", Likely},
		{"VERY_LIKELY", VeryLikely},
		{"UNKNOWN", LikelihoodUnknown},
		{"", LikelihoodUnknown},
		{"garbage", LikelihoodUnknown},
	}

	for _, tt := range tests {
		if got := ParseLikelihood(tt.in); got != tt.want {
			t.Errorf("ParseLikelihood(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLikelihood_String_RoundTrip(t *testing.T) {
	for _, l := range []Likelihood{VeryUnlikely, Unlikely, Possible, Likely, VeryLikely} {
		if got := ParseLikelihood(l.String()); got != l {
			t.Errorf("round trip of %v produced %v", l, got)
		}
	}
}
