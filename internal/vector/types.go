package vector

import (
	"time"

	"github.com/google/uuid"
)

const (
	// EmbeddingDim matches the text-embedding-3-small output size.
	EmbeddingDim = 1536

	// DefaultHost is the default Qdrant host.
	DefaultHost = "localhost"

	// DefaultPort is the default Qdrant gRPC port.
	DefaultPort = 6334

	// DefaultTimeout is the default operation timeout.
	DefaultTimeout = 30 * time.Second
)

// Config holds connection settings for the Qdrant client.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Timeout    time.Duration
}

// Filters narrows a similarity search by payload fields. Empty fields are
// not applied.
type Filters struct {
	CropType string
	Category string
	Language string
}

// Match is a single similarity-search hit. QAID references the authoritative
// row in the primary store; callers must re-fetch it before trusting payload
// data.
type Match struct {
	QAID     uuid.UUID `json:"qa_id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Score    float64   `json:"similarity_score"`
}
