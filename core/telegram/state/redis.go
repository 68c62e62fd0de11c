package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces session keys.
const RedisKeyPrefix = "shopbot:session:"

type redisStore struct {
	client       redis.Cmdable
	defaultStage StageID
	ttl          time.Duration
}

// NewRedisStore keeps sessions as JSON documents in Redis. A zero ttl keeps them forever.
func NewRedisStore(client redis.Cmdable, defaultStage StageID, ttl time.Duration) Store {
	return &redisStore{client: client, defaultStage: defaultStage, ttl: ttl}
}

func sessionKey(chatID int64) string {
	return RedisKeyPrefix + strconv.FormatInt(chatID, 10)
}

func (r *redisStore) Load(ctx context.Context, chatID int64) (*Session, bool, error) {
	val, err := r.client.Get(ctx, sessionKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewSession(r.defaultStage), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("state: load session %d: %w", chatID, err)
	}
	sess, err := decodeSession(val, r.defaultStage)
	if err != nil {
		return nil, false, fmt.Errorf("state: load session %d: %w", chatID, err)
	}
	return sess, true, nil
}

func (r *redisStore) Save(ctx context.Context, chatID int64, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("state: encode session %d: %w", chatID, err)
	}
	if err := r.client.Set(ctx, sessionKey(chatID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("state: save session %d: %w", chatID, err)
	}
	return nil
}

func (r *redisStore) Reset(ctx context.Context, chatID int64) error {
	sess, ok, err := r.Load(ctx, chatID)
	if err != nil || !ok {
		return err
	}
	sess.Reset()
	return r.Save(ctx, chatID, sess)
}

func decodeSession(data []byte, defaultStage StageID) (*Session, error) {
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	if sess.Stage == "" {
		sess.Stage = defaultStage
	}
	if sess.Scratch == nil {
		sess.Scratch = make(map[string]json.RawMessage)
	}
	return &sess, nil
}
