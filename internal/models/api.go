package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RetailerWithDistance is a Retailer annotated with the distance (km) to the
// query point. Computed per request, never persisted.
type RetailerWithDistance struct {
	Retailer
	Distance float64 `json:"distance"`
}

// QASearchResult is a QAEntry annotated with a similarity score. The score is
// always set: a genuine score from the semantic path, or 0.5 for keyword hits.
type QASearchResult struct {
	QAEntry
	SimilarityScore float64 `json:"similarity_score"`
}

// AreaCoverage describes the bounding box of all retailer coordinates
type AreaCoverage struct {
	MinLatitude       *float64 `json:"min_latitude"`
	MaxLatitude       *float64 `json:"max_latitude"`
	MinLongitude      *float64 `json:"min_longitude"`
	MaxLongitude      *float64 `json:"max_longitude"`
	TotalRetailers    int64    `json:"total_retailers"`
	VerifiedRetailers int64    `json:"verified_retailers"`
}

type RetailerCreateRequest struct {
	Name          string   `json:"name" binding:"required"`
	ContactPerson string   `json:"contact_person"`
	PhoneNumber   string   `json:"phone_number"`
	Email         string   `json:"email"`
	Address       string   `json:"address"`
	Latitude      *float64 `json:"latitude" binding:"required"`
	Longitude     *float64 `json:"longitude" binding:"required"`
	Services      []string `json:"services"`
}

type QACreateRequest struct {
	Question string `json:"question" binding:"required"`
	Answer   string `json:"answer" binding:"required"`
	CropType string `json:"crop_type"`
	Category string `json:"category"`
	Language string `json:"language"`
}

type ChatRequest struct {
	Message     string `json:"message" binding:"required"`
	MessageType string `json:"message_type" binding:"required"`
}

type GroupCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	CropType    string `json:"crop_type"`
	Location    string `json:"location"`
}

type GroupUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	CropType    *string `json:"crop_type"`
	Location    *string `json:"location"`
}

type GroupMessageRequest struct {
	Message     string `json:"message" binding:"required"`
	MessageType string `json:"message_type"`
}

type AnalysisTriggerRequest struct {
	ImagePath    string `json:"image_path" binding:"required"`
	Filename     string `json:"filename" binding:"required"`
	AnalysisType string `json:"analysis_type" binding:"required"`
}

type BatchImageInput struct {
	ImagePath string `json:"image_path" binding:"required"`
	Filename  string `json:"filename"`
}

type BatchAnalysisTriggerRequest struct {
	AnalysisType string            `json:"analysis_type" binding:"required"`
	Images       []BatchImageInput `json:"images" binding:"required"`
}

// AnalysisResultPayload is the workflow engine's completed-analysis callback.
type AnalysisResultPayload struct {
	UserID          string          `json:"user_id" binding:"required"`
	ImagePath       string          `json:"image_path" binding:"required"`
	AnalysisType    string          `json:"analysis_type" binding:"required"`
	Results         json.RawMessage `json:"results" binding:"required"`
	ConfidenceScore float64         `json:"confidence_score"`
	Recommendations []string        `json:"recommendations"`
}

type BatchResultPayload struct {
	BatchID           string                  `json:"batch_id"`
	IndividualResults []AnalysisResultPayload `json:"individual_results" binding:"required"`
}

type AskAIResponse struct {
	Answer          string      `json:"answer"`
	Source          string      `json:"source"` // 'knowledge_base' or 'ai_generated'
	SimilarityScore float64     `json:"similarity_score,omitempty"`
	TrustScore      float64     `json:"trust_score,omitempty"`
	QAID            *uuid.UUID  `json:"qa_id,omitempty"`
	SimilarEntries  interface{} `json:"similar_questions,omitempty"`
}

type DistanceResponse struct {
	RetailerID   uuid.UUID `json:"retailer_id"`
	RetailerName string    `json:"retailer_name"`
	DistanceKm   float64   `json:"distance_km"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	Address      string    `json:"address"`
}

type VoteResponse struct {
	Message   string `json:"message"`
	Upvotes   int    `json:"upvotes"`
	Downvotes int    `json:"downvotes"`
}

type ServiceTagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}
