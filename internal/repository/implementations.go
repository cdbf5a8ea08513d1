package repository

import (
	"fmt"

	"github.com/digitalkrishi/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RetailerRepositoryImpl implements RetailerRepository
type RetailerRepositoryImpl struct {
	db *gorm.DB
}

func NewRetailerRepository(db *gorm.DB) models.RetailerRepository {
	return &RetailerRepositoryImpl{db: db}
}

func (r *RetailerRepositoryImpl) Create(retailer *models.Retailer) error {
	return r.db.Create(retailer).Error
}

func (r *RetailerRepositoryImpl) GetByID(id uuid.UUID) (*models.Retailer, error) {
	var retailer models.Retailer
	err := r.db.First(&retailer, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &retailer, nil
}

func (r *RetailerRepositoryImpl) GetAll() ([]models.Retailer, error) {
	var retailers []models.Retailer
	err := r.db.Find(&retailers).Error
	return retailers, err
}

func (r *RetailerRepositoryImpl) List(filters models.RetailerListFilters) ([]models.Retailer, error) {
	query := r.db.Model(&models.Retailer{})

	if filters.IsVerified != nil {
		query = query.Where("is_verified = ?", *filters.IsVerified)
	}
	for _, service := range filters.Services {
		query = query.Where("? = ANY(services)", service)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	var retailers []models.Retailer
	err := query.Offset(filters.Offset).
		Order("name").
		Find(&retailers).Error
	return retailers, err
}

func (r *RetailerRepositoryImpl) Update(retailer *models.Retailer) error {
	return r.db.Save(retailer).Error
}

func (r *RetailerRepositoryImpl) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Retailer{}, "id = ?", id).Error
}

func (r *RetailerRepositoryImpl) ServiceTags() (map[string]int, error) {
	type row struct {
		Service string
		Count   int
	}
	var rows []row
	err := r.db.Raw(`
		SELECT UNNEST(services) AS service, COUNT(*) AS count
		FROM retailers
		GROUP BY service
		ORDER BY count DESC
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	tags := make(map[string]int, len(rows))
	for _, row := range rows {
		tags[row.Service] = row.Count
	}
	return tags, nil
}

func (r *RetailerRepositoryImpl) AreaCoverage() (*models.AreaCoverage, error) {
	var coverage models.AreaCoverage
	err := r.db.Raw(`
		SELECT
			COUNT(*) AS total_retailers,
			COUNT(*) FILTER (WHERE is_verified) AS verified_retailers,
			MIN(latitude) AS min_latitude,
			MAX(latitude) AS max_latitude,
			MIN(longitude) AS min_longitude,
			MAX(longitude) AS max_longitude
		FROM retailers
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
	`).Scan(&coverage).Error
	if err != nil {
		return nil, err
	}
	return &coverage, nil
}

// QARepositoryImpl implements QARepository
type QARepositoryImpl struct {
	db *gorm.DB
}

func NewQARepository(db *gorm.DB) models.QARepository {
	return &QARepositoryImpl{db: db}
}

func (r *QARepositoryImpl) Create(entry *models.QAEntry) error {
	return r.db.Create(entry).Error
}

func (r *QARepositoryImpl) GetByID(id uuid.UUID) (*models.QAEntry, error) {
	var entry models.QAEntry
	err := r.db.First(&entry, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func applyKnowledgeFilters(query *gorm.DB, filters models.KnowledgeFilters) *gorm.DB {
	if filters.CropType != "" {
		query = query.Where("crop_type = ?", filters.CropType)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.Language != "" {
		query = query.Where("language = ?", filters.Language)
	}
	return query
}

func (r *QARepositoryImpl) List(filters models.KnowledgeFilters, offset, limit int) ([]models.QAEntry, error) {
	var entries []models.QAEntry
	err := applyKnowledgeFilters(r.db.Model(&models.QAEntry{}), filters).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *QARepositoryImpl) Popular(filters models.KnowledgeFilters, limit int) ([]models.QAEntry, error) {
	var entries []models.QAEntry
	err := applyKnowledgeFilters(r.db.Model(&models.QAEntry{}), filters).
		Order("upvotes DESC, created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// SearchByKeywords returns entries where every token appears in the question
// or the answer, best-voted first.
func (r *QARepositoryImpl) SearchByKeywords(tokens []string, filters models.KnowledgeFilters, limit int) ([]models.QAEntry, error) {
	query := applyKnowledgeFilters(r.db.Model(&models.QAEntry{}), filters)

	for _, token := range tokens {
		pattern := "%" + token + "%"
		query = query.Where("LOWER(question) LIKE ? OR LOWER(answer) LIKE ?", pattern, pattern)
	}

	var entries []models.QAEntry
	err := query.Order("upvotes DESC, created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *QARepositoryImpl) Update(entry *models.QAEntry) error {
	return r.db.Save(entry).Error
}

func (r *QARepositoryImpl) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.QAEntry{}, "id = ?", id).Error
}

// Vote atomically increments the requested counter and returns the updated
// entry.
func (r *QARepositoryImpl) Vote(id uuid.UUID, voteType string) (*models.QAEntry, error) {
	var column string
	switch voteType {
	case "upvote":
		column = "upvotes"
	case "downvote":
		column = "downvotes"
	default:
		return nil, fmt.Errorf("invalid vote type: %s", voteType)
	}

	result := r.db.Model(&models.QAEntry{}).
		Where("id = ?", id).
		Update(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return r.GetByID(id)
}

func (r *QARepositoryImpl) Categories() (map[string]int, error) {
	return r.groupCount("category")
}

func (r *QARepositoryImpl) CropTypes() (map[string]int, error) {
	return r.groupCount("crop_type")
}

func (r *QARepositoryImpl) groupCount(column string) (map[string]int, error) {
	type row struct {
		Value string
		Count int
	}
	var rows []row
	err := r.db.Raw(fmt.Sprintf(`
		SELECT %s AS value, COUNT(*) AS count
		FROM qa_repository
		WHERE %s IS NOT NULL AND %s != ''
		GROUP BY %s
		ORDER BY count DESC
	`, column, column, column, column)).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Value] = row.Count
	}
	return counts, nil
}

// ChatMessageRepositoryImpl implements ChatMessageRepository
type ChatMessageRepositoryImpl struct {
	db *gorm.DB
}

func NewChatMessageRepository(db *gorm.DB) models.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{db: db}
}

func (r *ChatMessageRepositoryImpl) Create(message *models.ChatMessage) error {
	return r.db.Create(message).Error
}

func (r *ChatMessageRepositoryImpl) GetByID(id, userID uuid.UUID) (*models.ChatMessage, error) {
	var message models.ChatMessage
	err := r.db.Where("id = ? AND user_id = ?", id, userID).
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *ChatMessageRepositoryImpl) History(userID uuid.UUID, offset, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *ChatMessageRepositoryImpl) Delete(id, userID uuid.UUID) error {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.ChatMessage{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ChatMessageRepositoryImpl) ClearHistory(userID uuid.UUID) error {
	return r.db.Where("user_id = ?", userID).
		Delete(&models.ChatMessage{}).Error
}

// ImageAnalysisRepositoryImpl implements ImageAnalysisRepository
type ImageAnalysisRepositoryImpl struct {
	db *gorm.DB
}

func NewImageAnalysisRepository(db *gorm.DB) models.ImageAnalysisRepository {
	return &ImageAnalysisRepositoryImpl{db: db}
}

func (r *ImageAnalysisRepositoryImpl) Create(analysis *models.ImageAnalysis) error {
	return r.db.Create(analysis).Error
}

func (r *ImageAnalysisRepositoryImpl) GetByID(id, userID uuid.UUID) (*models.ImageAnalysis, error) {
	var analysis models.ImageAnalysis
	err := r.db.Where("id = ? AND user_id = ?", id, userID).
		First(&analysis).Error
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (r *ImageAnalysisRepositoryImpl) History(userID uuid.UUID, analysisType string, offset, limit int) ([]models.ImageAnalysis, error) {
	query := r.db.Where("user_id = ?", userID)
	if analysisType != "" {
		query = query.Where("analysis_type = ?", analysisType)
	}

	var analyses []models.ImageAnalysis
	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&analyses).Error
	return analyses, err
}

func (r *ImageAnalysisRepositoryImpl) Delete(id, userID uuid.UUID) error {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.ImageAnalysis{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GroupChatRepositoryImpl implements GroupChatRepository
type GroupChatRepositoryImpl struct {
	db *gorm.DB
}

func NewGroupChatRepository(db *gorm.DB) models.GroupChatRepository {
	return &GroupChatRepositoryImpl{db: db}
}

func (r *GroupChatRepositoryImpl) Create(group *models.GroupChat) error {
	return r.db.Create(group).Error
}

func (r *GroupChatRepositoryImpl) GetByID(id uuid.UUID) (*models.GroupChat, error) {
	var group models.GroupChat
	err := r.db.First(&group, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *GroupChatRepositoryImpl) List(cropType, location string, isActive bool, offset, limit int) ([]models.GroupChat, error) {
	query := r.db.Model(&models.GroupChat{}).Where("is_active = ?", isActive)

	if cropType != "" {
		query = query.Where("crop_type = ?", cropType)
	}
	if location != "" {
		query = query.Where("location = ?", location)
	}

	var groups []models.GroupChat
	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&groups).Error
	return groups, err
}

func (r *GroupChatRepositoryImpl) Update(group *models.GroupChat) error {
	return r.db.Save(group).Error
}

// Deactivate soft-deletes a group. Messages are retained.
func (r *GroupChatRepositoryImpl) Deactivate(id uuid.UUID) error {
	result := r.db.Model(&models.GroupChat{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GroupMessageRepositoryImpl implements GroupMessageRepository
type GroupMessageRepositoryImpl struct {
	db *gorm.DB
}

func NewGroupMessageRepository(db *gorm.DB) models.GroupMessageRepository {
	return &GroupMessageRepositoryImpl{db: db}
}

func (r *GroupMessageRepositoryImpl) Create(message *models.GroupMessage) error {
	return r.db.Create(message).Error
}

func (r *GroupMessageRepositoryImpl) ListByGroup(groupID uuid.UUID, offset, limit int) ([]models.GroupMessage, error) {
	var messages []models.GroupMessage
	err := r.db.Where("group_id = ?", groupID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Preload("User").
		Find(&messages).Error
	return messages, err
}

// UserRepositoryImpl implements UserRepository
type UserRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) models.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) GetByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.Preload("Profile").First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) GetProfile(userID uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// SystemHealthRepositoryImpl implements SystemHealthRepository
type SystemHealthRepositoryImpl struct {
	db *gorm.DB
}

func NewSystemHealthRepository(db *gorm.DB) models.SystemHealthRepository {
	return &SystemHealthRepositoryImpl{db: db}
}

func (r *SystemHealthRepositoryImpl) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	return r.db.Exec(`
		INSERT INTO system_health (service_name, status, response_time_ms, error_message, checked_at)
		VALUES (?, ?, ?, ?, NOW())
	`, serviceName, status, responseTime, errorMsg).Error
}

func (r *SystemHealthRepositoryImpl) GetServiceHealth(serviceName string) (*models.SystemHealth, error) {
	var health models.SystemHealth
	err := r.db.Where("service_name = ?", serviceName).
		Order("checked_at DESC").
		First(&health).Error
	if err != nil {
		return nil, err
	}
	return &health, nil
}

func (r *SystemHealthRepositoryImpl) GetAllServicesHealth() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Raw(`
		SELECT DISTINCT ON (service_name) *
		FROM system_health
		ORDER BY service_name, checked_at DESC
	`).Scan(&health).Error
	return health, err
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	Retailer      models.RetailerRepository
	QA            models.QARepository
	ChatMessage   models.ChatMessageRepository
	ImageAnalysis models.ImageAnalysisRepository
	GroupChat     models.GroupChatRepository
	GroupMessage  models.GroupMessageRepository
	User          models.UserRepository
	SystemHealth  models.SystemHealthRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		Retailer:      NewRetailerRepository(db),
		QA:            NewQARepository(db),
		ChatMessage:   NewChatMessageRepository(db),
		ImageAnalysis: NewImageAnalysisRepository(db),
		GroupChat:     NewGroupChatRepository(db),
		GroupMessage:  NewGroupMessageRepository(db),
		User:          NewUserRepository(db),
		SystemHealth:  NewSystemHealthRepository(db),
	}
}
