package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// PersistedMessage is one immutable entry of a thread's transcript.
type PersistedMessage struct {
	ThreadID  string          `json:"thread_id" bson:"thread_id"`
	UserName  string          `json:"user_name" bson:"user_name"`
	Role      schema.RoleType `json:"role" bson:"role"`
	Content   string          `json:"content" bson:"content"`
	Timestamp time.Time       `json:"timestamp" bson:"timestamp"`
	Status    string          `json:"status" bson:"status"`
}

// Message converts the record back into a model message.
func (p *PersistedMessage) Message() *schema.Message {
	return &schema.Message{Role: p.Role, Content: p.Content}
}

// CVRecord holds the durable profile of a thread: its CV data and the
// verified country. Every save replaces the whole record.
type CVRecord struct {
	ThreadID        string      `json:"thread_id" bson:"thread_id"`
	CVSummary       string      `json:"cv_summary" bson:"cv_summary"`
	CVAnalysis      *CVAnalysis `json:"cv_analysis,omitempty" bson:"cv_analysis,omitempty"`
	Country         string      `json:"country,omitempty" bson:"country,omitempty"`
	CountryVerified bool        `json:"country_verified" bson:"country_verified"`
	Timestamp       time.Time   `json:"timestamp" bson:"timestamp"`
}

type ConversationRepository interface {
	// AddMessage appends a record to the thread's transcript
	AddMessage(ctx context.Context, msg *PersistedMessage) error

	// LoadHistory returns the transcript in insertion order
	LoadHistory(ctx context.Context, threadID string) (*ConversationHistory, error)

	// ClearHistory removes all records of a thread
	ClearHistory(ctx context.Context, threadID string) error

	// GetMessageCount returns the number of records of a thread
	GetMessageCount(ctx context.Context, threadID string) (int, error)

	// UpdateUserName rewrites user_name on the thread's user records
	UpdateUserName(ctx context.Context, threadID, userName string) error

	// FinalizeConversation marks every record of the thread as completed
	FinalizeConversation(ctx context.Context, threadID string) error
}

type CVRepository interface {
	// GetCV returns nil without error when the thread has no CV record
	GetCV(ctx context.Context, threadID string) (*CVRecord, error)
	SaveCV(ctx context.Context, rec *CVRecord) error
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ThreadID string
	Messages []*PersistedMessage
}
