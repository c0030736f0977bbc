package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type redisRecordRepository struct {
	client *redis.Client
}

func NewRedisRecordRepository(client *redis.Client) GameRecordRepository {
	return &redisRecordRepository{
		client: client,
	}
}

func recordKey(id string) string {
	return "record:" + id
}

func (that *redisRecordRepository) Create(ctx context.Context, record *GameRecord) (string, error) {
	stored := *record
	stored.ID = uuid.NewString()
	stored.Status = StatusInProgress
	stored.StartedAt = time.Now().UTC()

	if err := that.set(ctx, &stored); err != nil {
		return "", err
	}

	return stored.ID, nil
}

func (that *redisRecordRepository) Finish(ctx context.Context, id string, winnerID *string, winnerSeat *int, totalMoves int) error {
	record, err := that.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	record.Status = StatusCompleted
	record.WinnerID = winnerID
	record.WinnerSeat = winnerSeat
	record.TotalMoves = totalMoves
	record.EndedAt = &now

	return that.set(ctx, record)
}

func (that *redisRecordRepository) GetByID(ctx context.Context, id string) (*GameRecord, error) {
	response, err := that.client.Get(ctx, recordKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game record: %w", err)
	}

	var record GameRecord
	if err = json.Unmarshal([]byte(response), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game record: %w", err)
	}

	return &record, nil
}

func (that *redisRecordRepository) set(ctx context.Context, record *GameRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not marshal game record: %w", err)
	}

	if err = that.client.Set(ctx, recordKey(record.ID), recordJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set game record: %w", err)
	}

	return nil
}
