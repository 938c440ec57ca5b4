package conversations

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/Jadir123-w/repli-post/internal/agent/model"
)

// DefaultUserName labels user records until the user shares a name.
const DefaultUserName = "Usuario"

// MessagesManager turns persisted transcripts into model messages and back.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	assistantName    string
	now              func() time.Time
}

func NewMessagesManager(conversationRepo model.ConversationRepository, prompt model.PromptConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		assistantName:    prompt.AssistantName,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Replay loads the transcript of a thread as the sequence the next model
// call sees: the system prompt followed by the user/assistant messages.
// It also returns the name the user last shared, if any.
func (cm *MessagesManager) Replay(ctx context.Context, threadID, systemPrompt string) ([]*schema.Message, string, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, threadID)
	if err != nil {
		return nil, "", err
	}

	var userName string
	messages := make([]*schema.Message, 0, len(history.Messages)+1)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	for _, rec := range history.Messages {
		if rec == nil || strings.TrimSpace(rec.Content) == "" {
			continue
		}
		if rec.Role != schema.User && rec.Role != schema.Assistant {
			continue
		}
		if rec.Role == schema.User && rec.UserName != "" && rec.UserName != DefaultUserName {
			userName = rec.UserName
		}
		messages = append(messages, rec.Message())
	}
	return messages, userName, nil
}

// History returns the raw transcript records of a thread.
func (cm *MessagesManager) History(ctx context.Context, threadID string) ([]*model.PersistedMessage, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return history.Messages, nil
}

// RenameUser rewrites the user name on the thread's user records.
func (cm *MessagesManager) RenameUser(ctx context.Context, threadID, userName string) error {
	return cm.conversationRepo.UpdateUserName(ctx, threadID, userName)
}

// SaveUserMessage persists a user message under the user's display name.
func (cm *MessagesManager) SaveUserMessage(ctx context.Context, threadID, userName, content string) error {
	if strings.TrimSpace(userName) == "" {
		userName = DefaultUserName
	}
	return cm.save(ctx, threadID, userName, schema.User, content)
}

// SaveResponse persists an assistant reply under the assistant's name.
func (cm *MessagesManager) SaveResponse(ctx context.Context, threadID, content string) error {
	return cm.save(ctx, threadID, cm.assistantName, schema.Assistant, content)
}

// Finalize marks every record of the thread as completed.
func (cm *MessagesManager) Finalize(ctx context.Context, threadID string) error {
	return cm.conversationRepo.FinalizeConversation(ctx, threadID)
}

func (cm *MessagesManager) save(ctx context.Context, threadID, userName string, role schema.RoleType, content string) error {
	return cm.conversationRepo.AddMessage(ctx, &model.PersistedMessage{
		ThreadID:  threadID,
		UserName:  userName,
		Role:      role,
		Content:   content,
		Timestamp: cm.now(),
		Status:    model.StatusActive,
	})
}

// Compact reduces an in-memory sequence to its persisted shape: the leading
// system message plus the user and final assistant messages. Tool exchanges
// and assistant tool-call turns only live inside a turn.
func Compact(msgs []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for i, m := range msgs {
		if m == nil {
			continue
		}
		switch m.Role {
		case schema.System:
			if i == 0 {
				out = append(out, m)
			}
		case schema.User:
			if strings.TrimSpace(m.Content) != "" {
				out = append(out, m)
			}
		case schema.Assistant:
			if len(m.ToolCalls) == 0 && strings.TrimSpace(m.Content) != "" {
				out = append(out, m)
			}
		}
	}
	return out
}
