package n8n

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func fastRetryClient(baseURL string) *Client {
	client := NewClient(baseURL, "test-key", testLogger())
	client.retry = RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	return client
}

func TestClient_ModerateContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/moderate-content", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ModerationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "group_message", req.ContentType)
		assert.NotEmpty(t, req.ModerationID)
		assert.NotEmpty(t, req.Timestamp)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ModerationResult{Action: "reject", Reason: "spam"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", testLogger())

	result, err := client.ModerateContent(context.Background(), uuid.New(), "buy now!!!", "group_message", "group-1")
	require.NoError(t, err)
	assert.Equal(t, "reject", result.Action)
	assert.False(t, result.Allowed())
}

func TestClient_ModerateContent_EmptyActionDefaultsToAllow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Workflows sometimes respond with an empty body on success.
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", testLogger())

	result, err := client.ModerateContent(context.Background(), uuid.New(), "how is your paddy?", "group_message", "")
	require.NoError(t, err)
	assert.Equal(t, "allow", result.Action)
	assert.True(t, result.Allowed())
}

func TestClient_TriggerBatchAnalysis(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/batch-analysis", r.URL.Path)

		var req BatchAnalysisRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "pest", req.AnalysisType)
		assert.Len(t, req.Images, 2)
		assert.NotEmpty(t, req.BatchID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AnalysisResponse{Status: "queued", WorkflowID: "wf-7"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", testLogger())

	images := []BatchImage{
		{ImagePath: "/uploads/a.jpg", Filename: "a.jpg"},
		{ImagePath: "/uploads/b.jpg", Filename: "b.jpg"},
	}
	resp, err := client.TriggerBatchAnalysis(context.Background(), uuid.New(), "pest", images)
	require.NoError(t, err)
	assert.Equal(t, "queued", resp.Status)
	assert.Equal(t, "wf-7", resp.WorkflowID)
}

func TestClient_TriggerBatchAnalysis_LimitEnforced(t *testing.T) {
	client := NewClient("http://unused", "test-key", testLogger())

	images := make([]BatchImage, MaxBatchImages+1)
	for i := range images {
		images[i] = BatchImage{ImagePath: "/uploads/x.jpg", Filename: "x.jpg"}
	}

	_, err := client.TriggerBatchAnalysis(context.Background(), uuid.New(), "crop", images)
	assert.Error(t, err)

	_, err = client.TriggerBatchAnalysis(context.Background(), uuid.New(), "crop", nil)
	assert.Error(t, err)
}

func TestClient_SendNotificationRejectsUnknownType(t *testing.T) {
	client := NewClient("http://unused", "", testLogger())

	_, err := client.SendNotification(context.Background(), NotificationRequest{
		UserID:           uuid.NewString(),
		NotificationType: "carrier_pigeon",
		Message:          "hello",
	})
	assert.Error(t, err)
}

func TestClient_ErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Invalid request"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", testLogger())

	_, err := client.SendNotification(context.Background(), NotificationRequest{
		UserID:           uuid.NewString(),
		NotificationType: "weather_alert",
		Message:          "heavy rain expected",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestClient_RetrySucceedsAfterTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AnalysisResponse{Status: "queued"})
	}))
	defer server.Close()

	client := fastRetryClient(server.URL)

	resp, err := client.TriggerImageAnalysis(context.Background(), ImageAnalysisRequest{
		UserID:       uuid.NewString(),
		ImagePath:    "/uploads/leaf.jpg",
		AnalysisType: "disease",
		Filename:     "leaf.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "queued", resp.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_RetryStopsOnCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := fastRetryClient(server.URL)
	_, err := client.TriggerImageAnalysis(ctx, ImageAnalysisRequest{AnalysisType: "crop"})
	assert.Error(t, err)
}

func TestClient_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/health-check", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", testLogger())
	assert.NoError(t, client.HealthCheck(context.Background()))
}
