package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Jadir123-w/repli-post/internal/agent/model"
	errx "github.com/Jadir123-w/repli-post/internal/core/error"
	logx "github.com/Jadir123-w/repli-post/pkg/logger"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationRepository) conversationKey(threadID string) string {
	return fmt.Sprintf("conversation:%s:messages", threadID)
}

func (r *RedisConversationRepository) cvKey(threadID string) string {
	return fmt.Sprintf("conversation:%s:cv", threadID)
}

func (r *RedisConversationRepository) AddMessage(ctx context.Context, msg *model.PersistedMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", msg.ThreadID).Msg("failed to marshal message")
		return fmt.Errorf("marshal message: %w", err)
	}
	key := r.conversationKey(msg.ThreadID)

	// append message
	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message to redis")
		return errx.WrapRedis(err)
	}
	return r.touch(ctx, key)
}

// touch extends the TTL of key on every write.
func (r *RedisConversationRepository) touch(ctx context.Context, key string) error {
	if r.ttl <= 0 {
		return nil
	}
	ok, err := r.rdb.Expire(ctx, key, r.ttl).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
		return errx.WrapRedis(err)
	}
	if !ok {
		logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on conversation key")
	}
	return nil
}

func (r *RedisConversationRepository) LoadHistory(ctx context.Context, threadID string) (*model.ConversationHistory, error) {
	msgs, err := r.load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return &model.ConversationHistory{ThreadID: threadID, Messages: msgs}, nil
}

func (r *RedisConversationRepository) load(ctx context.Context, threadID string) ([]*model.PersistedMessage, error) {
	key := r.conversationKey(threadID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*model.PersistedMessage{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*model.PersistedMessage, 0, len(rows))
	for i, s := range rows {
		var m model.PersistedMessage
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("thread_id", threadID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, threadID string) error {
	key := r.conversationKey(threadID)
	if err := r.rdb.Del(ctx, key, r.cvKey(threadID)).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation history from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) GetMessageCount(ctx context.Context, threadID string) (int, error) {
	key := r.conversationKey(threadID)
	n, err := r.rdb.LLen(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to get message count from redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

func (r *RedisConversationRepository) UpdateUserName(ctx context.Context, threadID, userName string) error {
	return r.rewrite(ctx, threadID, func(m *model.PersistedMessage) {
		if m.Role == schema.User {
			m.UserName = userName
		}
	})
}

func (r *RedisConversationRepository) FinalizeConversation(ctx context.Context, threadID string) error {
	return r.rewrite(ctx, threadID, func(m *model.PersistedMessage) {
		m.Status = model.StatusCompleted
	})
}

// rewrite replaces the whole list in one MULTI/EXEC so readers never see a
// partially rewritten transcript.
func (r *RedisConversationRepository) rewrite(ctx context.Context, threadID string, edit func(*model.PersistedMessage)) error {
	msgs, err := r.load(ctx, threadID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	rows := make([]any, 0, len(msgs))
	for _, m := range msgs {
		edit(m)
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		rows = append(rows, b)
	}

	key := r.conversationKey(threadID)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.RPush(ctx, key, rows...)
		if r.ttl > 0 {
			p.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to rewrite conversation in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) GetCV(ctx context.Context, threadID string) (*model.CVRecord, error) {
	key := r.cvKey(threadID)
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load cv record from redis")
		return nil, errx.WrapRedis(err)
	}
	var rec model.CVRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal cv record: %w", err)
	}
	return &rec, nil
}

func (r *RedisConversationRepository) SaveCV(ctx context.Context, rec *model.CVRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal cv record: %w", err)
	}
	key := r.cvKey(rec.ThreadID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save cv record to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var (
	_ model.ConversationRepository = (*RedisConversationRepository)(nil)
	_ model.CVRepository           = (*RedisConversationRepository)(nil)
)
