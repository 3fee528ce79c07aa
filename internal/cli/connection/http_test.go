package connection

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHTTPClient(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   string
	}{
		{"with http prefix", "http://localhost:8080", "http://localhost:8080"},
		{"with https prefix", "https://localhost:8080", "https://localhost:8080"},
		{"without prefix", "localhost:8080", "http://localhost:8080"},
		{"trailing slash", "http://localhost:8080/", "http://localhost:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewHTTPClient(tt.server)
			if client.BaseURL() != tt.want {
				t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), tt.want)
			}
		})
	}
}

func TestHTTPClient_Options(t *testing.T) {
	client := NewHTTPClient("localhost:8080", WithTimeout(time.Second), WithUserAgent("test/1"))
	if client.client.Timeout != time.Second {
		t.Errorf("Timeout = %v, want 1s", client.client.Timeout)
	}
	if client.userAgent != "test/1" {
		t.Errorf("userAgent = %q", client.userAgent)
	}
}

func TestHTTPClient_Methods(t *testing.T) {
	type seen struct {
		method, path, contentType, body string
	}
	var got seen

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = seen{r.Method, r.URL.Path, r.Header.Get("Content-Type"), string(body)}
		if r.Header.Get("User-Agent") != "shopmate-cli" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()
	payload := json.RawMessage(`{"history":[]}`)

	tests := []struct {
		name string
		call func() (*http.Response, error)
		want seen
	}{
		{"get", func() (*http.Response, error) { return client.Get(ctx, "/sessions/a") },
			seen{http.MethodGet, "/sessions/a", "", ""}},
		{"post raw", func() (*http.Response, error) { return client.Post(ctx, "/sessions", payload) },
			seen{http.MethodPost, "/sessions", "application/json", `{"history":[]}`}},
		{"put", func() (*http.Response, error) { return client.Put(ctx, "/sessions/a", payload) },
			seen{http.MethodPut, "/sessions/a", "application/json", `{"history":[]}`}},
		{"delete", func() (*http.Response, error) { return client.Delete(ctx, "/sessions/a") },
			seen{http.MethodDelete, "/sessions/a", "", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.call()
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if got != tt.want {
				t.Errorf("server saw %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		header     string
		body       string
		wantErr    bool
		wantCode   string
		wantStatus int
		wantID     string
	}{
		{
			name:   "success envelope",
			status: http.StatusOK,
			body:   `{"code":"OK","message":"Success","data":{"session_id":"abc"}}`,
			wantID: "abc",
		},
		{
			name:   "no content",
			status: http.StatusNoContent,
		},
		{
			name:       "error envelope",
			status:     http.StatusNotFound,
			body:       `{"code":"SM-SESS-4040","message":"session not found"}`,
			wantErr:    true,
			wantCode:   "SM-SESS-4040",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "plain text error with code header",
			status:     http.StatusMethodNotAllowed,
			header:     "SM-SYS-4050",
			body:       "Method Not Allowed",
			wantErr:    true,
			wantCode:   "SM-SYS-4050",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:    "malformed success body",
			status:  http.StatusOK,
			body:    `{not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("X-Error-Code", tt.header)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			resp, err := NewHTTPClient(server.URL).Get(context.Background(), "/")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}

			var out struct {
				SessionID string `json:"session_id"`
			}
			err = ParseResponse(resp, &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantCode != "" {
				apiErr, ok := err.(*APIError)
				if !ok {
					t.Fatalf("error = %T, want *APIError", err)
				}
				if apiErr.Code != tt.wantCode {
					t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
				}
				if !IsStatus(err, tt.wantStatus) {
					t.Errorf("IsStatus(%d) = false", tt.wantStatus)
				}
			}
			if out.SessionID != tt.wantID {
				t.Errorf("SessionID = %q, want %q", out.SessionID, tt.wantID)
			}
		})
	}
}

func TestParseResponse_NilTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"OK","data":{"a":1}}`)
	}))
	defer server.Close()

	resp, err := NewHTTPClient(server.URL).Get(context.Background(), "/")
	if err != nil {
		t.Fatal(err)
	}
	if err := ParseResponse(resp, nil); err != nil {
		t.Errorf("ParseResponse(nil) = %v", err)
	}
}

func TestAPIError_Error(t *testing.T) {
	if got := (&APIError{Status: 502}).Error(); got != "request failed with status 502" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&APIError{Status: 404, Code: "SM-SESS-4040", Message: "gone"}).Error(); got != "[SM-SESS-4040] gone" {
		t.Errorf("Error() = %q", got)
	}
}
