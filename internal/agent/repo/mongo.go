package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jadir123-w/repli-post/internal/agent/model"
	errx "github.com/Jadir123-w/repli-post/internal/core/error"
	logx "github.com/Jadir123-w/repli-post/pkg/logger"
	"github.com/cloudwego/eino/schema"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	MessagesCollection = "conversations_memory"
	CVCollection       = "cv_analysis"
)

type MongoConversationRepository struct {
	messages *mongo.Collection
	cvs      *mongo.Collection
}

func NewMongoConversationRepository(db *mongo.Database) *MongoConversationRepository {
	return &MongoConversationRepository{
		messages: db.Collection(MessagesCollection),
		cvs:      db.Collection(CVCollection),
	}
}

// EnsureIndexes creates the thread/timestamp index used by history reads.
func (r *MongoConversationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "thread_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return errx.WrapMongo(err)
	}
	_, err = r.cvs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "thread_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errx.WrapMongo(err)
}

func (r *MongoConversationRepository) AddMessage(ctx context.Context, msg *model.PersistedMessage) error {
	if _, err := r.messages.InsertOne(ctx, msg); err != nil {
		logx.Error().Err(err).Str("thread_id", msg.ThreadID).Msg("failed to insert message into mongo")
		return errx.WrapMongo(err)
	}
	return nil
}

func (r *MongoConversationRepository) LoadHistory(ctx context.Context, threadID string) (*model.ConversationHistory, error) {
	// _id breaks ties between records written within the same millisecond.
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.messages.Find(ctx, bson.M{"thread_id": threadID}, opts)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to query conversation history")
		return nil, errx.WrapMongo(err)
	}
	defer cur.Close(ctx)

	msgs := []*model.PersistedMessage{}
	if err := cur.All(ctx, &msgs); err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to decode conversation history")
		return nil, errx.WrapMongo(err)
	}
	return &model.ConversationHistory{ThreadID: threadID, Messages: msgs}, nil
}

func (r *MongoConversationRepository) ClearHistory(ctx context.Context, threadID string) error {
	if _, err := r.messages.DeleteMany(ctx, bson.M{"thread_id": threadID}); err != nil {
		return errx.WrapMongo(err)
	}
	if _, err := r.cvs.DeleteMany(ctx, bson.M{"thread_id": threadID}); err != nil {
		return errx.WrapMongo(err)
	}
	return nil
}

func (r *MongoConversationRepository) GetMessageCount(ctx context.Context, threadID string) (int, error) {
	n, err := r.messages.CountDocuments(ctx, bson.M{"thread_id": threadID})
	if err != nil {
		return 0, errx.WrapMongo(err)
	}
	return int(n), nil
}

func (r *MongoConversationRepository) UpdateUserName(ctx context.Context, threadID, userName string) error {
	_, err := r.messages.UpdateMany(ctx,
		bson.M{"thread_id": threadID, "role": schema.User},
		bson.M{"$set": bson.M{"user_name": userName}},
	)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to update user name")
		return errx.WrapMongo(err)
	}
	return nil
}

func (r *MongoConversationRepository) FinalizeConversation(ctx context.Context, threadID string) error {
	_, err := r.messages.UpdateMany(ctx,
		bson.M{"thread_id": threadID},
		bson.M{"$set": bson.M{"status": model.StatusCompleted, "end_time": time.Now().UTC()}},
	)
	if err != nil {
		return errx.WrapMongo(err)
	}
	return nil
}

func (r *MongoConversationRepository) GetCV(ctx context.Context, threadID string) (*model.CVRecord, error) {
	var rec model.CVRecord
	err := r.cvs.FindOne(ctx, bson.M{"thread_id": threadID}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to load cv record")
		return nil, errx.WrapMongo(err)
	}
	return &rec, nil
}

func (r *MongoConversationRepository) SaveCV(ctx context.Context, rec *model.CVRecord) error {
	if rec == nil || rec.ThreadID == "" {
		return fmt.Errorf("cv record without thread id")
	}
	// replace, not $set: a cleared analysis must not survive from the previous CV
	_, err := r.cvs.ReplaceOne(ctx,
		bson.M{"thread_id": rec.ThreadID},
		rec,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", rec.ThreadID).Msg("failed to save cv record")
		return errx.WrapMongo(err)
	}
	return nil
}

var (
	_ model.ConversationRepository = (*MongoConversationRepository)(nil)
	_ model.CVRepository           = (*MongoConversationRepository)(nil)
)
