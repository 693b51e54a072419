package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHTTPClient_Independence(t *testing.T) {
	client1 := NewHTTPClient(HTTPClientOptions{})
	client2 := NewHTTPClient(HTTPClientOptions{})

	if client1.Client == client2.Client {
		t.Fatal("expected NewHTTPClient to return HTTPClients with different *resty.Client instances")
	}
}

func TestNewHTTPClient_AppliesOptions(t *testing.T) {
	var gotAgent, gotAccept, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewHTTPClient(HTTPClientOptions{BaseURL: srv.URL, Timeout: time.Second, UserAgent: "note-keeper/1"})

	resp, err := client.R().Get("/edam/user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode() != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode())
	}
	if gotAgent != "note-keeper/1" || gotAccept != "application/json" || gotPath != "/edam/user" {
		t.Errorf("unexpected request: agent=%q accept=%q path=%q", gotAgent, gotAccept, gotPath)
	}
	if client.GetClient().Timeout != time.Second {
		t.Errorf("timeout = %v", client.GetClient().Timeout)
	}
}
