// Package redisstore keeps notes in Redis hashes with native key expiry.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/amirk1998/secret-notes/internal/models"
	"github.com/amirk1998/secret-notes/internal/repository"
	apperrors "github.com/amirk1998/secret-notes/pkg/errors"
)

const (
	keyPrefix = "note:" // note:{id} - hash with ciphertext, read, created_at, expires_at

	// Keys outlive expires_at by this much so a late reader sees Expired rather than NotFound.
	expiryGrace = 24 * time.Hour

	scanBatch = 500
)

// createScript stamps created_at from the server clock and refuses to overwrite an id.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
local t = redis.call('TIME')
local ms = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
redis.call('HSET', KEYS[1], 'ciphertext', ARGV[1], 'read', '0', 'created_at', string.format('%d', ms), 'expires_at', ARGV[2])
redis.call('PEXPIREAT', KEYS[1], ARGV[3])
return 1
`)

var claimScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
if redis.call('HGET', KEYS[1], 'read') == '1' then
  return 0
end
redis.call('HSET', KEYS[1], 'read', '1')
return 1
`)

// Store implements repository.NoteStore on top of Redis.
type Store struct {
	rdb   *redis.Client
	newID func() string
}

var _ repository.NoteStore = (*Store)(nil)

func New(rdb *redis.Client) *Store {
	return &Store{
		rdb:   rdb,
		newID: uuid.NewString,
	}
}

// Connect parses a redis:// URL and checks the server answers
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}

func noteKey(id string) string {
	return keyPrefix + id
}

func (s *Store) Create(ctx context.Context, ciphertext string, expiresAt time.Time) (string, error) {
	id := s.newID()

	created, err := createScript.Run(ctx, s.rdb, []string{noteKey(id)},
		ciphertext,
		expiresAt.UnixMilli(),
		expiresAt.Add(expiryGrace).UnixMilli(),
	).Int()
	if err != nil {
		return "", apperrors.Unavailable("create note", err)
	}
	if created != 1 {
		return "", apperrors.Unavailable("create note", fmt.Errorf("id collision on %s", id))
	}

	return id, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.Note, error) {
	fields, err := s.rdb.HGetAll(ctx, noteKey(id)).Result()
	if err != nil {
		return nil, apperrors.Unavailable("get note", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	note, err := decodeNote(id, fields)
	if err != nil {
		return nil, apperrors.Unavailable("get note", err)
	}
	return note, nil
}

func decodeNote(id string, fields map[string]string) (*models.Note, error) {
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt created_at: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt expires_at: %w", err)
	}

	return &models.Note{
		ID:         id,
		Ciphertext: fields["ciphertext"],
		Read:       fields["read"] == "1",
		CreatedAt:  time.UnixMilli(createdAt).UTC(),
		ExpiresAt:  time.UnixMilli(expiresAt).UTC(),
	}, nil
}

// MarkRead reuses the claim script and ignores whether this call flipped the flag.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	if _, err := s.ClaimUnread(ctx, id); err != nil {
		return err
	}
	return nil
}

func (s *Store) ClaimUnread(ctx context.Context, id string) (bool, error) {
	claimed, err := claimScript.Run(ctx, s.rdb, []string{noteKey(id)}).Int()
	if err != nil {
		return false, apperrors.Unavailable("claim note", err)
	}
	return claimed == 1, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, noteKey(id)).Err(); err != nil {
		return apperrors.Unavailable("delete note", err)
	}
	return nil
}

// DeleteExpired removes notes in their grace window. Keys past the grace window
// are already gone through native expiry and are not reported.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	cutoff := now.UnixMilli()
	var ids []string

	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		raw, err := s.rdb.HGet(ctx, key, "expires_at").Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return ids, apperrors.Unavailable("delete expired notes", err)
		}

		expiresAt, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || expiresAt >= cutoff {
			continue
		}

		removed, err := s.rdb.Del(ctx, key).Result()
		if err != nil {
			return ids, apperrors.Unavailable("delete expired notes", err)
		}
		if removed == 1 {
			ids = append(ids, key[len(keyPrefix):])
		}
	}
	if err := iter.Err(); err != nil {
		return ids, apperrors.Unavailable("delete expired notes", err)
	}

	return ids, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return apperrors.Unavailable("ping", err)
	}
	return nil
}
