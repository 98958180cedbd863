package melcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/model"
)

const (
	loginPath     = "/api/login"
	buildingsPath = "/api/buildings"
	devicePath    = "/api/devices" // /{id}/ata or /{id}/atw
)

// Client speaks the vendor cloud REST API. It owns no cache and no session
// state beyond the transport cookie jar; the coordinator passes the context
// key in on every call.
type Client struct {
	baseURL string
	hc      *http.Client
	logger  *zap.Logger
}

func New(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: baseURL,
		hc: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		logger: zap.L(),
	}
}

// Login exchanges credentials for a context key. Invalid credentials and
// any other non-2xx response surface as AuthenticationError.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(loginRequest{
		Username: username,
		Password: password,
		Persist:  true,
	})
	if err != nil {
		return "", &APIError{Reason: "marshal login request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return "", &APIError{Reason: "build login request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return "", &APIError{Reason: "login request failed", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return "", &AuthenticationError{StatusCode: res.StatusCode, Reason: "login rejected"}
	}

	var lr loginResponse
	if err := json.NewDecoder(res.Body).Decode(&lr); err != nil {
		return "", &APIError{StatusCode: res.StatusCode, Reason: "malformed login response", Err: err}
	}
	if lr.ContextKey == "" {
		return "", &AuthenticationError{StatusCode: res.StatusCode, Reason: "empty context key"}
	}
	c.logger.Debug("logged in to melcloud")
	return lr.ContextKey, nil
}

// ListDevices is the one aggregate fetch: every building with every unit,
// parsed through the schema tables into the typed domain model.
func (c *Client) ListDevices(ctx context.Context, token string) ([]model.Building, error) {
	data, err := c.get(ctx, token, buildingsPath)
	if err != nil {
		return nil, err
	}

	var wire []buildingWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &APIError{Reason: "malformed buildings response", Err: err}
	}

	buildings := make([]model.Building, 0, len(wire))
	for _, bw := range wire {
		b := model.Building{
			ID:       strconv.Itoa(bw.ID),
			Name:     bw.Name,
			TimeZone: bw.TimeZone,
		}
		for _, dw := range bw.AirToAirUnits {
			unit, err := parseAtaUnit(dw, c.logger)
			if err != nil {
				return nil, &APIError{Reason: "malformed air-to-air unit", Err: err}
			}
			b.AirToAir = append(b.AirToAir, unit)
		}
		for _, dw := range bw.AirToWaterUnits {
			unit, err := parseAtwUnit(dw, c.logger)
			if err != nil {
				return nil, &APIError{Reason: "malformed air-to-water unit", Err: err}
			}
			b.AirToWater = append(b.AirToWater, unit)
		}
		buildings = append(buildings, b)
	}
	return buildings, nil
}

func (c *Client) get(ctx context.Context, token, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &APIError{Reason: "build request", Err: err}
	}
	c.setHeaders(req, token)

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, &APIError{Reason: "request failed", Err: err}
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &APIError{StatusCode: res.StatusCode, Reason: "read body", Err: err}
	}
	return data, nil
}

// put issues a device write. A successful write returns 200 with an empty
// body; the backend applies it asynchronously, so there is never fresh
// state to return.
func (c *Client) put(ctx context.Context, token, path string, payload writeRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &APIError{Reason: "marshal write request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &APIError{Reason: "build request", Err: err}
	}
	c.setHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return &APIError{Reason: "request failed", Err: err}
	}
	defer res.Body.Close()

	return checkStatus(res)
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
}

func checkStatus(res *http.Response) error {
	switch {
	case res.StatusCode/100 == 2:
		return nil
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return &AuthenticationError{StatusCode: res.StatusCode, Reason: "session rejected"}
	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &APIError{StatusCode: res.StatusCode, Reason: fmt.Sprintf("unexpected status: %s", string(b))}
	}
}
