package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"polls-backend/models"

	"github.com/redis/go-redis/v9"
)

const resultsTTL = 1 * time.Hour

func resultsKey(questionID uint) string {
	return fmt.Sprintf("question:%d:results", questionID)
}

// GetResults returns the cached aggregate for a question, ErrCacheMiss when
// absent, ErrRedisNotAvailable when the cache is down.
func GetResults(ctx context.Context, questionID uint) (*models.QuestionResults, error) {
	client, err := GetClient()
	if err != nil {
		return nil, err
	}

	data, err := client.Get(ctx, resultsKey(questionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var results models.QuestionResults
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// SetResults stores the aggregate for later reads. Failures are the caller's
// to ignore; the database stays the source of truth.
func SetResults(ctx context.Context, results *models.QuestionResults) error {
	client, err := GetClient()
	if err != nil {
		return err
	}

	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return client.Set(ctx, resultsKey(results.QuestionID), data, resultsTTL).Err()
}

// InvalidateResults drops the cached aggregate after a committed vote so the
// next read recomputes from Vote rows.
func InvalidateResults(ctx context.Context, questionID uint) error {
	client, err := GetClient()
	if err != nil {
		return err
	}
	return client.Del(ctx, resultsKey(questionID)).Err()
}
