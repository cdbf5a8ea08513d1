package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Client calls n8n workflow webhooks. Each workflow hangs off the configured
// webhook base URL by path.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      RetryConfig
	logger     *logrus.Logger
}

func NewClient(baseURL, apiKey string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		retry:  DefaultRetryConfig(),
		logger: logger,
	}
}

// ModerateContent runs the content moderation workflow. Callers treat errors
// as "allow", since moderation failing must never block farmers from posting.
func (c *Client) ModerateContent(ctx context.Context, userID uuid.UUID, content, contentType, groupID string) (*ModerationResult, error) {
	req := ModerationRequest{
		UserID:       userID.String(),
		Content:      content,
		ContentType:  contentType,
		GroupID:      groupID,
		ModerationID: "mod_" + uuid.NewString(),
		Timestamp:    timestamp(),
	}

	var result ModerationResult
	if err := c.makeRequest(ctx, http.MethodPost, "/moderate-content", req, &result); err != nil {
		return nil, err
	}
	if result.Action == "" {
		result.Action = "allow"
	}
	return &result, nil
}

// TriggerImageAnalysis starts the analysis workflow for a single image.
func (c *Client) TriggerImageAnalysis(ctx context.Context, req ImageAnalysisRequest) (*AnalysisResponse, error) {
	req.Timestamp = timestamp()

	var result AnalysisResponse
	err := c.makeRequestWithRetry(ctx, http.MethodPost, "/image-analysis", req, &result)
	return &result, err
}

// TriggerBatchAnalysis starts analysis for up to MaxBatchImages images.
func (c *Client) TriggerBatchAnalysis(ctx context.Context, userID uuid.UUID, analysisType string, images []BatchImage) (*AnalysisResponse, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("batch analysis requires at least one image")
	}
	if len(images) > MaxBatchImages {
		return nil, fmt.Errorf("batch analysis limited to %d images, got %d", MaxBatchImages, len(images))
	}

	req := BatchAnalysisRequest{
		UserID:       userID.String(),
		AnalysisType: analysisType,
		Images:       images,
		BatchID:      "batch_" + uuid.NewString(),
		Timestamp:    timestamp(),
	}

	var result AnalysisResponse
	err := c.makeRequestWithRetry(ctx, http.MethodPost, "/batch-analysis", req, &result)
	return &result, err
}

// SendNotification delivers a notification through the workflow engine.
func (c *Client) SendNotification(ctx context.Context, req NotificationRequest) (*NotificationResponse, error) {
	if !ValidNotificationType(req.NotificationType) {
		return nil, fmt.Errorf("invalid notification type: %s", req.NotificationType)
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}
	req.Timestamp = timestamp()

	var result NotificationResponse
	err := c.makeRequest(ctx, http.MethodPost, "/send-notification", req, &result)
	return &result, err
}

// EnhanceChat enriches a chat message with workflow context.
func (c *Client) EnhanceChat(ctx context.Context, req ChatEnhancementRequest) (*ChatEnhancementResponse, error) {
	if req.ChatID == "" {
		req.ChatID = "chat_" + uuid.NewString()
	}
	req.Timestamp = timestamp()

	var result ChatEnhancementResponse
	err := c.makeRequest(ctx, http.MethodPost, "/enhanced-chat", req, &result)
	return &result, err
}

// HealthCheck probes the workflow engine's health-check webhook.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.makeRequest(ctx, http.MethodGet, "/health-check", nil, nil)
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, payload interface{}, result interface{}) error {
	url := c.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"url":      url,
		"has_body": payload != nil,
	}).Debug("Calling n8n webhook")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status_code":   resp.StatusCode,
		"url":           url,
		"response_size": len(responseBody),
	}).Debug("n8n webhook response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook failed with status %d: %s", resp.StatusCode, string(responseBody))
	}

	// Some workflows respond with an empty body on success.
	if result != nil && len(bytes.TrimSpace(responseBody)) > 0 {
		if err := json.Unmarshal(responseBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
