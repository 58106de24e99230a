package syncdb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) (*httpClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &httpClient{
		baseURL:   srv.URL,
		apiKey:    "test-key",
		apiKeyHdr: "X-API-Key",
		pageSize:  2,
		http:      srv.Client(),
		limiter:   time.Tick(time.Millisecond),
	}, srv
}

func TestGetRecord(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("api key header = %q, want test-key", got)
		}
		if r.URL.Path != "/v1/users/u-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"responseInfo":{"responseCode":0,"responseMessage":"OK"},"record":{"id":"u-1","email":"a@b.com"}}`))
	}))

	raw, err := client.GetRecord(context.Background(), DomainUsers, "u-1")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	var user RemoteUser
	if err := json.Unmarshal(raw, &user); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if user.Id != "u-1" || user.Email != "a@b.com" {
		t.Fatalf("record = %+v", user)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseInfo":{"responseCode":404,"responseMessage":"no such record"}}`))
	}))

	_, err := client.GetRecord(context.Background(), DomainUsers, "missing")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("GetRecord = %v, want ErrRecordNotFound", err)
	}
}

func TestGetRecordApplicationError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseInfo":{"responseCode":500,"responseMessage":"backend exploded"}}`))
	}))

	_, err := client.GetRecord(context.Background(), DomainUsers, "u-1")
	if err == nil || errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("GetRecord = %v, want application error", err)
	}
}

func TestGetRecordHTTPError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))

	if _, err := client.GetRecord(context.Background(), DomainUsers, "u-1"); err == nil {
		t.Fatal("GetRecord on 504: want error")
	}
}

func TestGetRecordByKey(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/users/lookup" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("email"); got != "a@b.com" {
			t.Errorf("email param = %q", got)
		}
		w.Write([]byte(`{"responseInfo":{"responseCode":0},"record":{"id":"u-1"}}`))
	}))

	raw, err := client.GetRecordByKey(context.Background(), DomainUsers, "email", "a@b.com")
	if err != nil {
		t.Fatalf("GetRecordByKey: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("GetRecordByKey returned empty record")
	}
}

func TestGetRecordListPaging(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("updatedSince"); got == "" {
			t.Error("updatedSince param missing")
		}
		switch r.URL.Query().Get("page") {
		case "1":
			w.Write([]byte(`{"responseInfo":{"responseCode":0},"records":[{"id":"p-1"},{"id":"p-2"}]}`))
		case "2":
			w.Write([]byte(`{"responseInfo":{"responseCode":0},"records":[{"id":"p-3"}]}`))
		default:
			w.Write([]byte(`{"responseInfo":{"responseCode":0},"records":[]}`))
		}
	}))

	ctx := context.Background()
	since := time.Unix(0, 0).UTC()

	page1, err := client.GetRecordList(ctx, DomainProducts, since, 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page1.Records) != 2 || !page1.HasMore {
		t.Fatalf("page 1 = %d records, hasMore=%v; want 2, true", len(page1.Records), page1.HasMore)
	}

	page2, err := client.GetRecordList(ctx, DomainProducts, since, 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2.Records) != 1 || page2.HasMore {
		t.Fatalf("page 2 = %d records, hasMore=%v; want 1, false", len(page2.Records), page2.HasMore)
	}
}

func TestPostTransaction(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/transactions" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var payload TransactionPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.OrderNumber != "SO-100" {
			t.Errorf("orderNumber = %q", payload.OrderNumber)
		}
		w.Write([]byte(`{"responseInfo":{"responseCode":0},"result":{"transactionId":"txn-9","responseCode":0,"responseMessage":"posted"}}`))
	}))

	result, err := client.PostTransaction(context.Background(), &TransactionPayload{OrderNumber: "SO-100"})
	if err != nil {
		t.Fatalf("PostTransaction: %v", err)
	}
	if result.TransactionId != "txn-9" {
		t.Fatalf("transactionId = %q, want txn-9", result.TransactionId)
	}
}

func TestPostTransactionWithoutId(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseInfo":{"responseCode":0},"result":{}}`))
	}))

	if _, err := client.PostTransaction(context.Background(), &TransactionPayload{}); err == nil {
		t.Fatal("PostTransaction without transaction id: want error")
	}
}
