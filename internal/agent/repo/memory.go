package repo

import (
	"context"
	"sync"

	"github.com/Jadir123-w/repli-post/internal/agent/model"
	"github.com/cloudwego/eino/schema"
)

// MemoryConversationRepository keeps transcripts in process memory.
type MemoryConversationRepository struct {
	mu       sync.RWMutex
	messages map[string][]model.PersistedMessage
	cvs      map[string]model.CVRecord
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		messages: make(map[string][]model.PersistedMessage),
		cvs:      make(map[string]model.CVRecord),
	}
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, msg *model.PersistedMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.ThreadID] = append(r.messages[msg.ThreadID], *msg)
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, threadID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.messages[threadID]
	msgs := make([]*model.PersistedMessage, len(rows))
	for i := range rows {
		m := rows[i]
		msgs[i] = &m
	}
	return &model.ConversationHistory{ThreadID: threadID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, threadID)
	delete(r.cvs, threadID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, threadID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages[threadID]), nil
}

func (r *MemoryConversationRepository) UpdateUserName(_ context.Context, threadID, userName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages[threadID] {
		if r.messages[threadID][i].Role == schema.User {
			r.messages[threadID][i].UserName = userName
		}
	}
	return nil
}

func (r *MemoryConversationRepository) FinalizeConversation(_ context.Context, threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages[threadID] {
		r.messages[threadID][i].Status = model.StatusCompleted
	}
	return nil
}

func (r *MemoryConversationRepository) GetCV(_ context.Context, threadID string) (*model.CVRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.cvs[threadID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *MemoryConversationRepository) SaveCV(_ context.Context, rec *model.CVRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cvs[rec.ThreadID] = *rec
	return nil
}

var (
	_ model.ConversationRepository = (*MemoryConversationRepository)(nil)
	_ model.CVRepository           = (*MemoryConversationRepository)(nil)
)
