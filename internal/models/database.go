package models

// GORM models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringArray for PostgreSQL array support
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}
	return fmt.Sprintf("{%s}", strings.Join(s, ",")), nil
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		if v == "{}" {
			*s = StringArray{}
			return nil
		}
		// Remove curly braces and split
		v = strings.Trim(v, "{}")
		if v == "" {
			*s = StringArray{}
			return nil
		}
		*s = StringArray(strings.Split(v, ","))
	case []byte:
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
	return nil
}

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// User represents a registered farmer
type User struct {
	BaseModel
	Email          string   `json:"email" gorm:"unique;not null"`
	HashedPassword string   `json:"-" gorm:"not null"`
	FullName       string   `json:"full_name" gorm:"not null"`
	PhoneNumber    string   `json:"phone_number" gorm:"uniqueIndex"`
	Location       string   `json:"location"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	IsActive       bool     `json:"is_active" gorm:"default:true"`

	// Associations
	Profile      *UserProfile  `json:"profile,omitempty" gorm:"foreignKey:UserID"`
	ChatMessages []ChatMessage `json:"-" gorm:"foreignKey:UserID"`
}

// UserProfile carries farming context used to build AI prompts
type UserProfile struct {
	BaseModel
	UserID            uuid.UUID   `json:"user_id" gorm:"type:uuid;not null"`
	CropsGrown        StringArray `json:"crops_grown" gorm:"type:text[]"`
	FarmSize          float64     `json:"farm_size"`
	FarmingExperience int         `json:"farming_experience"`
	PreferredLanguage string      `json:"preferred_language" gorm:"default:'malayalam'"`
}

// ChatMessage represents a one-on-one AI advisory exchange
type ChatMessage struct {
	BaseModel
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null"`
	Message     string    `json:"message" gorm:"not null"`
	MessageType string    `json:"message_type" gorm:"not null;check:message_type IN ('text','voice','image')"`
	Response    string    `json:"response"`
	TrustScore  float64   `json:"trust_score"`

	// Associations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// ImageAnalysis stores crop/pest/disease/soil analysis results from the workflow engine
type ImageAnalysis struct {
	BaseModel
	UserID          uuid.UUID `json:"user_id" gorm:"type:uuid;not null"`
	ImagePath       string    `json:"image_path" gorm:"not null"`
	AnalysisType    string    `json:"analysis_type" gorm:"not null;check:analysis_type IN ('crop','pest','disease','soil')"`
	Results         string    `json:"results" gorm:"type:jsonb"`
	ConfidenceScore float64   `json:"confidence_score"`
	Recommendations string    `json:"recommendations"`
}

// QAEntry represents one entry in the knowledge repository
type QAEntry struct {
	BaseModel
	Question  string `json:"question" gorm:"not null"`
	Answer    string `json:"answer" gorm:"not null"`
	CropType  string `json:"crop_type"`
	Category  string `json:"category"` // 'pest', 'disease', 'fertilizer', 'general', 'ai_generated'
	Language  string `json:"language" gorm:"default:'malayalam'"`
	Upvotes   int    `json:"upvotes" gorm:"default:0"`
	Downvotes int    `json:"downvotes" gorm:"default:0"`
}

// GroupChat represents a community discussion group
type GroupChat struct {
	BaseModel
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	CropType    string `json:"crop_type"`
	Location    string `json:"location"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`

	// Associations
	Messages []GroupMessage `json:"-" gorm:"foreignKey:GroupID"`
}

// GroupMessage represents a message posted in a community group
type GroupMessage struct {
	BaseModel
	GroupID     uuid.UUID `json:"group_id" gorm:"type:uuid;not null"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null"`
	Message     string    `json:"message" gorm:"not null"`
	MessageType string    `json:"message_type" gorm:"default:'text'"`

	// Associations
	Group GroupChat `json:"-" gorm:"foreignKey:GroupID"`
	User  User      `json:"user" gorm:"foreignKey:UserID"`
}

// Retailer represents an agri-supply retailer shown on the locator
type Retailer struct {
	BaseModel
	Name          string      `json:"name" gorm:"not null"`
	ContactPerson string      `json:"contact_person"`
	PhoneNumber   string      `json:"phone_number"`
	Email         string      `json:"email"`
	Address       string      `json:"address"`
	Latitude      *float64    `json:"latitude"`
	Longitude     *float64    `json:"longitude"`
	Services      StringArray `json:"services" gorm:"type:text[]"`
	Rating        float64     `json:"rating" gorm:"default:0"`
	IsVerified    bool        `json:"is_verified" gorm:"default:false"`
}

// SystemHealth represents service health monitoring
type SystemHealth struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ServiceName    string    `json:"service_name" gorm:"not null"`
	Status         string    `json:"status" gorm:"not null;check:status IN ('healthy','degraded','unhealthy')"`
	ResponseTimeMs int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message"`
	CheckedAt      time.Time `json:"checked_at" gorm:"default:NOW()"`
}

// KnowledgeFilters narrows knowledge-base queries
type KnowledgeFilters struct {
	CropType string
	Category string
	Language string
}

// RetailerListFilters narrows retailer listing
type RetailerListFilters struct {
	IsVerified *bool
	Services   []string
	Offset     int
	Limit      int
}

// Database interfaces for repository pattern
type RetailerRepository interface {
	Create(retailer *Retailer) error
	GetByID(id uuid.UUID) (*Retailer, error)
	GetAll() ([]Retailer, error)
	List(filters RetailerListFilters) ([]Retailer, error)
	Update(retailer *Retailer) error
	Delete(id uuid.UUID) error
	ServiceTags() (map[string]int, error)
	AreaCoverage() (*AreaCoverage, error)
}

type QARepository interface {
	Create(entry *QAEntry) error
	GetByID(id uuid.UUID) (*QAEntry, error)
	List(filters KnowledgeFilters, offset, limit int) ([]QAEntry, error)
	Popular(filters KnowledgeFilters, limit int) ([]QAEntry, error)
	SearchByKeywords(tokens []string, filters KnowledgeFilters, limit int) ([]QAEntry, error)
	Update(entry *QAEntry) error
	Delete(id uuid.UUID) error
	Vote(id uuid.UUID, voteType string) (*QAEntry, error)
	Categories() (map[string]int, error)
	CropTypes() (map[string]int, error)
}

type ChatMessageRepository interface {
	Create(message *ChatMessage) error
	GetByID(id, userID uuid.UUID) (*ChatMessage, error)
	History(userID uuid.UUID, offset, limit int) ([]ChatMessage, error)
	Delete(id, userID uuid.UUID) error
	ClearHistory(userID uuid.UUID) error
}

type ImageAnalysisRepository interface {
	Create(analysis *ImageAnalysis) error
	GetByID(id, userID uuid.UUID) (*ImageAnalysis, error)
	History(userID uuid.UUID, analysisType string, offset, limit int) ([]ImageAnalysis, error)
	Delete(id, userID uuid.UUID) error
}

type GroupChatRepository interface {
	Create(group *GroupChat) error
	GetByID(id uuid.UUID) (*GroupChat, error)
	List(cropType, location string, isActive bool, offset, limit int) ([]GroupChat, error)
	Update(group *GroupChat) error
	Deactivate(id uuid.UUID) error
}

type GroupMessageRepository interface {
	Create(message *GroupMessage) error
	ListByGroup(groupID uuid.UUID, offset, limit int) ([]GroupMessage, error)
}

type UserRepository interface {
	GetByID(id uuid.UUID) (*User, error)
	GetProfile(userID uuid.UUID) (*UserProfile, error)
}

type SystemHealthRepository interface {
	UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error
	GetServiceHealth(serviceName string) (*SystemHealth, error)
	GetAllServicesHealth() ([]SystemHealth, error)
}

// TableName methods for custom table names
func (User) TableName() string          { return "users" }
func (UserProfile) TableName() string   { return "user_profiles" }
func (ChatMessage) TableName() string   { return "chat_messages" }
func (ImageAnalysis) TableName() string { return "image_analyses" }
func (QAEntry) TableName() string       { return "qa_repository" }
func (GroupChat) TableName() string     { return "group_chats" }
func (GroupMessage) TableName() string  { return "group_messages" }
func (Retailer) TableName() string      { return "retailers" }
func (SystemHealth) TableName() string  { return "system_health" }

// Model validation methods
func (r *Retailer) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("retailer name is required")
	}
	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		return fmt.Errorf("latitude out of range: %f", *r.Latitude)
	}
	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		return fmt.Errorf("longitude out of range: %f", *r.Longitude)
	}
	if r.Rating < 0 || r.Rating > 5 {
		return fmt.Errorf("rating out of range: %f", r.Rating)
	}
	return nil
}

func (q *QAEntry) Validate() error {
	if q.Question == "" {
		return fmt.Errorf("question is required")
	}
	if q.Answer == "" {
		return fmt.Errorf("answer is required")
	}
	if q.Upvotes < 0 || q.Downvotes < 0 {
		return fmt.Errorf("vote counts cannot be negative")
	}
	return nil
}

func (m *ChatMessage) Validate() error {
	if m.Message == "" {
		return fmt.Errorf("message is required")
	}
	validTypes := map[string]bool{
		"text":  true,
		"voice": true,
		"image": true,
	}
	if !validTypes[m.MessageType] {
		return fmt.Errorf("invalid message type: %s", m.MessageType)
	}
	return nil
}

// GORM hooks
func (r *Retailer) BeforeCreate(tx *gorm.DB) error {
	if err := r.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return r.Validate()
}

func (r *Retailer) BeforeUpdate(tx *gorm.DB) error {
	return r.Validate()
}

func (q *QAEntry) BeforeCreate(tx *gorm.DB) error {
	if err := q.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return q.Validate()
}

func (q *QAEntry) BeforeUpdate(tx *gorm.DB) error {
	return q.Validate()
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if err := m.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return m.Validate()
}
