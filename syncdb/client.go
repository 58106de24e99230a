package syncdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Client is the remote record API surface the importer consumes. Implemented
// over HTTP in production and by fakes in tests.
type Client interface {
	GetRecord(ctx context.Context, domain, remoteId string) (json.RawMessage, error)
	GetRecordByKey(ctx context.Context, domain, keyField, keyValue string) (json.RawMessage, error)
	GetRecordList(ctx context.Context, domain string, updatedSince time.Time, page int) (*RecordPage, error)
	PostTransaction(ctx context.Context, payload *TransactionPayload) (*TransactionResult, error)
}

// ErrRecordNotFound is returned when the remote side has no record for the
// given id or key.
var ErrRecordNotFound = errors.New("syncdb: record not found")

type httpClient struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	pageSize  int
	http      *http.Client
	limiter   <-chan time.Time
}

// NewClient builds the HTTP client from environment configuration.
// SYNCDB_API_KEY is mandatory; everything else has defaults.
func NewClient() (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("SYNCDB_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("syncdb api key is empty")
	}
	baseURL := strings.TrimSpace(os.Getenv("SYNCDB_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.syncdb.example.com"
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("SYNCDB_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	pageSize := 100
	if v := strings.TrimSpace(os.Getenv("SYNCDB_PAGE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}
	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("SYNCDB_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &httpClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		pageSize:  pageSize,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   time.Tick(interval),
	}, nil
}

// envelope wraps every remote response. A non-zero response code means the
// call failed even when HTTP said 200.
type envelope struct {
	ResponseInfo struct {
		ResponseCode    int    `json:"responseCode"`
		ResponseMessage string `json:"responseMessage"`
	} `json:"responseInfo"`
	Record  json.RawMessage   `json:"record"`
	Records []json.RawMessage `json:"records"`
	Result  json.RawMessage   `json:"result"`
}

const responseCodeNotFound = 404

func (c *httpClient) do(ctx context.Context, method, path string, params url.Values, body interface{}) (*envelope, error) {
	<-c.limiter
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("syncdb api error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed envelope
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	if code := parsed.ResponseInfo.ResponseCode; code != 0 {
		if code == responseCodeNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("syncdb response code %d: %s", code, parsed.ResponseInfo.ResponseMessage)
	}
	return &parsed, nil
}

func (c *httpClient) GetRecord(ctx context.Context, domain, remoteId string) (json.RawMessage, error) {
	env, err := c.do(ctx, http.MethodGet, "/v1/"+domain+"/"+url.PathEscape(remoteId), nil, nil)
	if err != nil {
		return nil, err
	}
	if len(env.Record) == 0 {
		return nil, ErrRecordNotFound
	}
	return env.Record, nil
}

func (c *httpClient) GetRecordByKey(ctx context.Context, domain, keyField, keyValue string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set(keyField, keyValue)
	env, err := c.do(ctx, http.MethodGet, "/v1/"+domain+"/lookup", params, nil)
	if err != nil {
		return nil, err
	}
	if len(env.Record) == 0 {
		return nil, ErrRecordNotFound
	}
	return env.Record, nil
}

func (c *httpClient) GetRecordList(ctx context.Context, domain string, updatedSince time.Time, page int) (*RecordPage, error) {
	params := url.Values{}
	params.Set("updatedSince", updatedSince.UTC().Format(time.RFC3339))
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	env, err := c.do(ctx, http.MethodGet, "/v1/"+domain, params, nil)
	if err != nil {
		return nil, err
	}
	return &RecordPage{
		Records: env.Records,
		HasMore: len(env.Records) >= c.pageSize,
	}, nil
}

func (c *httpClient) PostTransaction(ctx context.Context, payload *TransactionPayload) (*TransactionResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/v1/transactions", nil, payload)
	if err != nil {
		return nil, err
	}
	var result TransactionResult
	if len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, &result); err != nil {
			return nil, err
		}
	}
	if result.TransactionId == "" {
		return nil, errors.New("syncdb: transaction post returned no transaction id")
	}
	return &result, nil
}
