package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "otp:"

// compareAndDelete deletes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisBackend stores each record as a JSON string under otp:<email> with a
// TTL of the retention window, so Redis does the purging.
type RedisBackend struct {
	rdb redis.UniversalClient
}

var _ Backend = (*RedisBackend)(nil)

func NewRedisBackend(rdb redis.UniversalClient) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

type redisRecord struct {
	Code     string `json:"code"`
	IssuedAt int64  `json:"issued_at"`
}

func redisKey(email string) string {
	return redisKeyPrefix + email
}

func encodeRecord(rec domain.OTPRecord) (string, error) {
	b, err := json.Marshal(redisRecord{Code: rec.Code, IssuedAt: rec.IssuedAt.UnixNano()})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *RedisBackend) Save(ctx context.Context, rec domain.OTPRecord, retain time.Duration) error {
	val, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, redisKey(rec.Email), val, retain).Err()
}

func (r *RedisBackend) Load(ctx context.Context, email string) (domain.OTPRecord, error) {
	val, err := r.rdb.Get(ctx, redisKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.OTPRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.OTPRecord{}, err
	}

	var rr redisRecord
	if err := json.Unmarshal([]byte(val), &rr); err != nil {
		return domain.OTPRecord{}, fmt.Errorf("otp: decode %s: %w", redisKey(email), err)
	}
	return domain.OTPRecord{
		Email:    email,
		Code:     rr.Code,
		IssuedAt: time.Unix(0, rr.IssuedAt),
	}, nil
}

func (r *RedisBackend) CompareAndDelete(ctx context.Context, rec domain.OTPRecord) (bool, error) {
	val, err := encodeRecord(rec)
	if err != nil {
		return false, err
	}
	n, err := compareAndDelete.Run(ctx, r.rdb, []string{redisKey(rec.Email)}, val).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
