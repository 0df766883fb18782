package vendorapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", nil)
}

func TestFetchIPv4(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/proxies/ipv4" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("unexpected api_key %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"proxies": [
				{
					"id": "p-1",
					"ip": "10.0.0.1",
					"port": 3128,
					"login": "user1",
					"password": "pass1",
					"country_code": "DE",
					"active": true,
					"days_remaining": 12,
					"expiry_at": "2026-09-09T00:00:00Z"
				},
				{"id": "p-2", "ip": "10.0.0.2", "port": 8080, "active": false, "days_remaining": 0}
			]
		}`))
	})

	proxies, err := client.FetchIPv4(context.Background())
	if err != nil {
		t.Fatalf("FetchIPv4: %v", err)
	}
	if len(proxies) != 2 {
		t.Fatalf("expected 2 proxies, got %d", len(proxies))
	}

	first := proxies[0]
	if first.ID != "p-1" || first.IP != "10.0.0.1" || first.Port != 3128 {
		t.Errorf("unexpected first proxy: %+v", first)
	}
	if first.Username != "user1" || first.Password != "pass1" {
		t.Errorf("credentials not mapped: %+v", first)
	}
	if !first.Active || first.DaysRemaining != 12 {
		t.Errorf("status fields not mapped: %+v", first)
	}
	want := time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC)
	if first.ExpiryAt == nil || !first.ExpiryAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, first.ExpiryAt)
	}
	if proxies[1].ExpiryAt != nil {
		t.Errorf("expected nil expiry for second proxy, got %v", proxies[1].ExpiryAt)
	}
}

func TestFetchIPv4NonOK(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	})

	if _, err := client.FetchIPv4(context.Background()); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestFetchIPv4MalformedBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"proxies": [`))
	})

	if _, err := client.FetchIPv4(context.Background()); err == nil {
		t.Fatal("expected error for truncated body")
	}
}

func TestTestConnection(t *testing.T) {
	calls := 0
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"proxies": []}`))
	})

	if err := client.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
}

func TestInvalidateCacheWithoutCache(t *testing.T) {
	client := NewClient("http://unused", "k", nil)
	if err := client.InvalidateCache(context.Background()); err != nil {
		t.Fatalf("InvalidateCache with nil cache: %v", err)
	}
}
