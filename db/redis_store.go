package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"student-roster-go/models"
)

const (
	nextIDSuffix     = ":next_id"  // String: last assigned student id
	idsSuffix        = ":ids"      // List: student ids in insertion order
	studentKeyInfix  = ":student:" // Hash prefix: {prefix}:student:{id} -> student details
	scanBatch        = 100
	DefaultKeyPrefix = "students"
)

// RedisStore keeps the roster in Redis under a key prefix. Reset clears the
// prefix, so records live only as long as the process that seeded them.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

// NewRedisStore creates a new RedisStore instance
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		Client: client,
		Prefix: prefix,
	}
}

// InitializeRedisClient creates and tests a Redis client connection
func InitializeRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", addr, err)
	}

	logrus.Infof("Successfully connected to Redis %s DB %d", addr, db)
	return rdb, nil
}

func (s *RedisStore) nextIDKey() string { return s.Prefix + nextIDSuffix }

func (s *RedisStore) idsKey() string { return s.Prefix + idsSuffix }

func (s *RedisStore) studentKey(id int) string {
	return s.Prefix + studentKeyInfix + strconv.Itoa(id)
}

func studentFromHash(data map[string]string) (*models.Student, error) {
	id, err := strconv.Atoi(data["id"])
	if err != nil {
		return nil, fmt.Errorf("corrupt student id %q: %w", data["id"], err)
	}
	return &models.Student{
		ID:      id,
		Name:    data["name"],
		Year:    data["year"],
		Section: data["section"],
	}, nil
}

func (s *RedisStore) List(ctx context.Context) ([]models.Student, error) {
	ids, err := s.Client.LRange(ctx, s.idsKey(), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logrus.WithError(err).Error("Error getting student ids")
		return nil, fmt.Errorf("failed to get student ids from Redis: %w", err)
	}

	students := make([]models.Student, 0, len(ids))
	if len(ids) == 0 {
		return students, nil
	}

	cmds := make([]*redis.StringStringMapCmd, 0, len(ids))
	pipe := s.Client.Pipeline()
	for _, id := range ids {
		cmds = append(cmds, pipe.HGetAll(ctx, s.Prefix+studentKeyInfix+id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).Error("Error fetching student details")
		return nil, fmt.Errorf("failed to get students from Redis: %w", err)
	}

	for i, cmd := range cmds {
		data := cmd.Val()
		if len(data) == 0 {
			logrus.Warnf("Student %s is listed but has no details, skipping", ids[i])
			continue
		}
		student, err := studentFromHash(data)
		if err != nil {
			logrus.WithError(err).Warnf("Skipping student %s", ids[i])
			continue
		}
		students = append(students, *student)
	}
	return students, nil
}

func (s *RedisStore) Get(ctx context.Context, id int) (*models.Student, error) {
	data, err := s.Client.HGetAll(ctx, s.studentKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		logrus.WithError(err).Errorf("Error getting student %d", id)
		return nil, fmt.Errorf("failed to get student from Redis: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return studentFromHash(data)
}

// Add allocates the id and writes the record in one WATCH/MULTI/EXEC
// transaction on the id counter, retrying when a concurrent add wins the
// race. A failed EXEC leaves the counter untouched, so ids stay contiguous.
func (s *RedisStore) Add(ctx context.Context, in models.NewStudent) (*models.Student, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	var student models.Student
	txf := func(tx *redis.Tx) error {
		last, err := tx.Get(ctx, s.nextIDKey()).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		student = in.Build(last + 1)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.nextIDKey(), student.ID, 0)
			pipe.HSet(ctx, s.studentKey(student.ID), map[string]interface{}{
				"id":      student.ID,
				"name":    student.Name,
				"year":    student.Year,
				"section": student.Section,
			})
			pipe.RPush(ctx, s.idsKey(), student.ID)
			return nil
		})
		return err
	}

	for {
		err := s.Client.Watch(ctx, txf, s.nextIDKey())
		if err == nil {
			return &student, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			logrus.WithError(err).Errorf("Error adding student %d", student.ID)
			return nil, fmt.Errorf("failed to add student to Redis: %w", err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.Client.LLen(ctx, s.idsKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return int(n), nil
}

// Reset deletes every key under the store prefix.
func (s *RedisStore) Reset(ctx context.Context) error {
	var keys []string
	iter := s.Client.Scan(ctx, 0, s.Prefix+":*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys under %s: %w", s.Prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.Client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete %d keys under %s: %w", len(keys), s.Prefix, err)
	}
	logrus.Debugf("Cleared %d Redis keys under %s", len(keys), s.Prefix)
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}
