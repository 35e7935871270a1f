package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newGet(t *testing.T, u string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	return req
}

func TestStandardClient_Wraps(t *testing.T) {
	customClient := &http.Client{}
	client := NewStandardClient(customClient)

	if client.Client != customClient {
		t.Error("expected custom client to be wrapped")
	}
}

func TestNewTimeoutClient(t *testing.T) {
	client := NewTimeoutClient(3 * time.Second)
	if client.Timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", client.Timeout)
	}
}

func TestMockHTTPClient_MultipleResponses(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "first")
	mock.AddResponse(http.StatusNoContent, "second")

	resp1, _ := mock.Do(newGet(t, "http://example.com/1"))
	body1, _ := io.ReadAll(resp1.Body)
	resp1.Body.Close()
	if string(body1) != "first" {
		t.Errorf("first response: got %q, want 'first'", string(body1))
	}

	resp2, _ := mock.Do(newGet(t, "http://example.com/2"))
	if resp2.StatusCode != http.StatusNoContent {
		t.Errorf("second response: got status %d, want %d", resp2.StatusCode, http.StatusNoContent)
	}
	resp2.Body.Close()

	if mock.RequestCount() != 2 {
		t.Errorf("got %d requests, want 2", mock.RequestCount())
	}
	if req := mock.GetRequest(1); req == nil || !strings.HasSuffix(req.URL.Path, "/2") {
		t.Error("GetRequest(1) should return second request")
	}
	if mock.GetRequest(99) != nil || mock.GetRequest(-1) != nil {
		t.Error("GetRequest out of bounds should return nil")
	}
}

func TestMockHTTPClient_Errors(t *testing.T) {
	mock := NewMockHTTPClient()
	expectedErr := errors.New("connection refused")
	mock.AddErrorResponse(expectedErr)

	if _, err := mock.Do(newGet(t, "http://example.com/api")); err != expectedErr {
		t.Errorf("got error %v, want %v", err, expectedErr)
	}

	mock.DefaultError = errors.New("network error")
	if _, err := mock.Do(newGet(t, "http://example.com/api")); err != mock.DefaultError {
		t.Errorf("got error %v, want DefaultError", err)
	}
}

func TestMockHTTPClient_CancelledContext(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "{}")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := newGet(t, "http://example.com/api").WithContext(ctx)

	if _, err := mock.Do(req); !errors.Is(err, context.Canceled) {
		t.Errorf("got error %v, want context.Canceled", err)
	}
}

func TestMockHTTPClient_Reset(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "test")
	mock.DefaultError = errors.New("error")
	mock.Do(newGet(t, "http://example.com/api"))
	mock.Reset()

	if len(mock.Requests) != 0 || len(mock.Responses) != 0 || mock.DefaultError != nil {
		t.Error("Reset should clear requests, responses and DefaultError")
	}
}

func TestGetJSON(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"display_name": "Berlin"}`)

	var out struct {
		DisplayName string `json:"display_name"`
	}
	q := url.Values{"lat": {"52.5"}, "format": {"json"}}
	hdr := http.Header{"User-Agent": {"speedwatch/test"}}
	if err := GetJSON(context.Background(), mock, "http://nominatim.test/reverse", q, hdr, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.DisplayName != "Berlin" {
		t.Errorf("display_name = %q, want Berlin", out.DisplayName)
	}

	req := mock.GetRequest(0)
	if req.URL.Query().Get("format") != "json" {
		t.Errorf("query = %q, want format=json", req.URL.RawQuery)
	}
	if req.Header.Get("User-Agent") != "speedwatch/test" {
		t.Errorf("User-Agent = %q", req.Header.Get("User-Agent"))
	}
}

func TestGetJSON_ErrorKinds(t *testing.T) {
	var out map[string]interface{}

	t.Run("transport", func(t *testing.T) {
		mock := NewMockHTTPClient()
		mock.AddErrorResponse(errors.New("dial tcp: refused"))
		err := GetJSON(context.Background(), mock, "http://x.test", nil, nil, &out)
		var te *TransportError
		if !errors.As(err, &te) {
			t.Fatalf("got %T %v, want *TransportError", err, err)
		}
	})

	t.Run("status", func(t *testing.T) {
		mock := NewMockHTTPClient()
		mock.AddResponse(http.StatusTooManyRequests, "slow down")
		err := GetJSON(context.Background(), mock, "http://x.test", nil, nil, &out)
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
			t.Fatalf("got %v, want *StatusError 429", err)
		}
	})

	t.Run("decode", func(t *testing.T) {
		mock := NewMockHTTPClient()
		mock.AddResponse(http.StatusOK, "<html>")
		err := GetJSON(context.Background(), mock, "http://x.test", nil, nil, &out)
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("got %T %v, want *DecodeError", err, err)
		}
	})
}

func TestGetJSON_StandardClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Query().Get("data") == "" {
			t.Errorf("expected data query parameter")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"elements": []}`))
	}))
	defer server.Close()

	var out struct {
		Elements []interface{} `json:"elements"`
	}
	err := GetJSON(context.Background(), NewStandardClient(nil), server.URL, url.Values{"data": {"[out:json];"}}, nil, &out)
	if err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.Elements == nil {
		t.Error("expected elements to be decoded")
	}
}
