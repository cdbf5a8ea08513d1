package n8n

import "time"

// MaxBatchImages caps one batch-analysis request.
const MaxBatchImages = 20

// ValidAnalysisTypes lists the image analysis workflows the engine knows.
var ValidAnalysisTypes = []string{"crop", "pest", "disease", "soil"}

// ValidAnalysisType reports whether t names a known analysis workflow.
func ValidAnalysisType(t string) bool {
	for _, v := range ValidAnalysisTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ValidNotificationTypes lists the notification workflows.
var ValidNotificationTypes = []string{
	"weather_alert", "market_update", "crop_analysis_complete",
	"community_message", "system_alert", "agricultural_tip",
	"price_alert", "seasonal_reminder",
}

// ValidNotificationType reports whether t names a known notification workflow.
func ValidNotificationType(t string) bool {
	for _, v := range ValidNotificationTypes {
		if t == v {
			return true
		}
	}
	return false
}

type ModerationRequest struct {
	UserID       string `json:"user_id"`
	Content      string `json:"content"`
	ContentType  string `json:"content_type"` // 'group_message', 'chat_message', 'user_profile'
	GroupID      string `json:"group_id,omitempty"`
	ModerationID string `json:"moderation_id"`
	Timestamp    string `json:"timestamp"`
}

type ModerationResult struct {
	Action     string  `json:"action"` // 'allow', 'review', 'reject'
	Reason     string  `json:"reason,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Allowed reports whether the moderated content may be posted.
func (r *ModerationResult) Allowed() bool {
	return r.Action != "reject"
}

type ImageAnalysisRequest struct {
	UserID        string   `json:"user_id"`
	ImagePath     string   `json:"image_path"`
	AnalysisType  string   `json:"analysis_type"`
	Filename      string   `json:"filename"`
	UserLatitude  *float64 `json:"user_latitude,omitempty"`
	UserLongitude *float64 `json:"user_longitude,omitempty"`
	Timestamp     string   `json:"timestamp"`
}

type BatchImage struct {
	ImagePath string `json:"image_path"`
	Filename  string `json:"filename"`
}

type BatchAnalysisRequest struct {
	UserID       string       `json:"user_id"`
	AnalysisType string       `json:"analysis_type"`
	Images       []BatchImage `json:"images"`
	BatchID      string       `json:"batch_id"`
	Timestamp    string       `json:"timestamp"`
}

type AnalysisResponse struct {
	Status     string `json:"status"`
	WorkflowID string `json:"workflow_id,omitempty"`
	Message    string `json:"message,omitempty"`
}

type NotificationRequest struct {
	UserID           string            `json:"user_id"`
	SenderID         string            `json:"sender_id,omitempty"`
	NotificationType string            `json:"notification_type"`
	Message          string            `json:"message"`
	Priority         string            `json:"priority"` // 'low', 'medium', 'high', 'urgent'
	Metadata         map[string]string `json:"metadata,omitempty"`
	Timestamp        string            `json:"timestamp"`
}

type NotificationResponse struct {
	Status  string `json:"status"`
	Channel string `json:"channel,omitempty"`
	Message string `json:"message,omitempty"`
}

type ChatEnhancementRequest struct {
	UserID            string   `json:"user_id"`
	Message           string   `json:"message"`
	MessageType       string   `json:"message_type"`
	CropTypes         []string `json:"crop_types,omitempty"`
	PreferredLanguage string   `json:"preferred_language,omitempty"`
	ChatID            string   `json:"chat_id"`
	Timestamp         string   `json:"timestamp"`
}

type ChatEnhancementResponse struct {
	Status     string  `json:"status"`
	Enhanced   string  `json:"enhanced,omitempty"`
	TrustScore float64 `json:"trust_score,omitempty"`
	Message    string  `json:"message,omitempty"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
