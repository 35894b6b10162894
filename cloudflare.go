package ddns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const cloudflareBaseURL = "https://api.cloudflare.com/client/v4"

// zonesPerPage is the page size requested when listing zones.
const zonesPerPage = 50

// requestTimeout bounds every outbound HTTP request.
const requestTimeout = 6 * time.Second

// Credentials holds one of the two header-based authentication schemes.
// A non-empty Token takes precedence over Email+Key.
type Credentials struct {
	Token string
	Email string
	Key   string
}

func (c Credentials) apply(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
		return
	}
	req.Header.Set("X-Auth-Email", c.Email)
	req.Header.Set("X-Auth-Key", c.Key)
}

// ResponseInfo is one entry of the errors or messages list attached to every
// provider response.
type ResponseInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type resultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
}

// envelope is the provider's standard response wrapper.
type envelope struct {
	Success    bool            `json:"success"`
	Errors     []ResponseInfo  `json:"errors"`
	Messages   []ResponseInfo  `json:"messages"`
	Result     json.RawMessage `json:"result"`
	ResultInfo resultInfo      `json:"result_info"`
}

// Zone is a provider-managed DNS namespace.
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Record is a single DNS resource record.
type Record struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// APIError is a failed provider call: a transport-level non-200 status, or a
// well-formed response with success set to false.
// The provider's error and message lists are carried verbatim.
type APIError struct {
	StatusCode int
	Errors     []ResponseInfo
	Messages   []ResponseInfo
	Body       []byte
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cloudflare: request failed (HTTP %d)", e.StatusCode)
	for _, info := range e.Errors {
		fmt.Fprintf(&b, "; error %d: %s", info.Code, info.Message)
	}
	for _, info := range e.Messages {
		fmt.Fprintf(&b, "; %s", info.Message)
	}
	if len(e.Errors) == 0 {
		b.WriteString("; re-run with --debug to see the raw response")
	}
	return b.String()
}

// Authentication reports whether the failure was a credential rejection
// rather than a generic HTTP failure.
func (e *APIError) Authentication() bool {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return true
	}
	for _, info := range e.Errors {
		// 6003: invalid request headers, 9103: unknown X-Auth-Key or
		// X-Auth-Email, 10000: invalid or missing token
		switch info.Code {
		case 6003, 9103, 10000:
			return true
		}
	}
	return false
}

// API is a minimal Cloudflare v4 REST client covering the three calls this
// program needs. It performs no retries and no caching.
type API struct {
	// BaseURL may be pointed at a test server.
	BaseURL string
	Client  *http.Client

	creds  Credentials
	logger *logrus.Logger
}

// NewAPI returns an API client authenticating with creds.
func NewAPI(creds Credentials) *API {
	return &API{
		BaseURL: cloudflareBaseURL,
		Client:  &http.Client{Timeout: requestTimeout},
		creds:   creds,
		logger:  discardLogger(),
	}
}

func (api *API) do(ctx context.Context, method, path string, body io.Reader) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, api.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	api.creds.apply(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := api.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	api.logger.Debugf("%s %s: %s", method, path, res.Status)

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if res.StatusCode != http.StatusOK || decodeErr != nil || !env.Success {
		api.logger.Debugf("raw response body: %s", raw)
		return nil, &APIError{
			StatusCode: res.StatusCode,
			Errors:     env.Errors,
			Messages:   env.Messages,
			Body:       raw,
		}
	}
	return &env, nil
}

// Zones returns a name-to-ID mapping of every zone in the account,
// aggregated across pages until the provider reports the last one.
func (api *API) Zones(ctx context.Context) (map[string]string, error) {
	zones := make(map[string]string)
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(zonesPerPage))
		env, err := api.do(ctx, http.MethodGet, "/zones?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		var result []Zone
		if len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, &result); err != nil {
				return nil, fmt.Errorf("error decoding zone list: %w", err)
			}
		}
		for _, z := range result {
			zones[z.Name] = z.ID
		}
		if page >= env.ResultInfo.TotalPages {
			return zones, nil
		}
	}
}

// Records looks up the A and AAAA records named name in the given zone.
// If the provider returns more than one record of a type,
// the first one wins and the rest are ignored.
// Both return values are nil when no matching record exists.
func (api *API) Records(ctx context.Context, zoneID, name string) (a, aaaa *Record, err error) {
	q := url.Values{}
	q.Set("name", name)
	env, err := api.do(ctx, http.MethodGet, "/zones/"+zoneID+"/dns_records?"+q.Encode(), nil)
	if err != nil {
		return nil, nil, err
	}
	var records []Record
	if len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, &records); err != nil {
			return nil, nil, fmt.Errorf("error decoding record list: %w", err)
		}
	}
	for i := range records {
		r := &records[i]
		if r.Name != name {
			continue
		}
		switch r.Type {
		case "A":
			if a == nil {
				a = r
			}
		case "AAAA":
			if aaaa == nil {
				aaaa = r
			}
		}
	}
	return a, aaaa, nil
}

// UpdateRecord patches the content of a single record.
func (api *API) UpdateRecord(ctx context.Context, zoneID, recordID, content string) error {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("error encoding request body: %w", err)
	}
	_, err = api.do(ctx, http.MethodPatch, "/zones/"+zoneID+"/dns_records/"+recordID, bytes.NewReader(body))
	return err
}
