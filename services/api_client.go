package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"focusonmeal/models"
)

// APIError is a non-2xx answer from the backend. Message holds the server's own text when
// the body carried one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend api error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend api error (%d)", e.StatusCode)
}

// ServerMessage returns the backend-provided message carried by err, if any.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

type LoginRequest struct {
	MemberID string `json:"memberId"`
	Password string `json:"memberPw"`
}

type LoginResponse struct {
	Token          string `json:"token"`
	MemberID       string `json:"memberId"`
	MemberName     string `json:"memberName"`
	MemberNickname string `json:"memberNickname"`
	AdminYN        string `json:"adminYn"`
}

// APIClient talks to the FocusOnMeal REST backend.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// GetSafetyAlert fetches GET /api/board/safety/detail/{id}.
func (c *APIClient) GetSafetyAlert(ctx context.Context, id int64) (*models.Alert, error) {
	var alert models.Alert
	path := fmt.Sprintf("/api/board/safety/detail/%d", id)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// DeleteMember issues DELETE /api/member/delete on behalf of the token's owner.
func (c *APIClient) DeleteMember(ctx context.Context, token, password string) error {
	body := map[string]string{"password": password}
	return c.do(ctx, http.MethodDelete, "/api/member/delete", token, body, nil)
}

// RecommendMealPlan posts to /api/chat/meal-recommendation. The decoded body is returned
// as-is; callers decide what a non-SUCCESS status means.
func (c *APIClient) RecommendMealPlan(ctx context.Context, req models.MealPlanRequest) (*models.MealPlanResponse, error) {
	var out models.MealPlanResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat/meal-recommendation", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/member/login", "", req, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("login response carried no token")
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// backend errors look like {"message": "..."}; older endpoints use "error"
		var apiErr struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		msg := ""
		if json.Unmarshal(respBytes, &apiErr) == nil {
			msg = apiErr.Message
			if msg == "" {
				msg = apiErr.Error
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(msg)}
	}

	if out == nil || len(bytes.TrimSpace(respBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		preview := string(respBytes)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return fmt.Errorf("decode %s %s response: %v | body: %s", method, path, err, preview)
	}
	return nil
}
