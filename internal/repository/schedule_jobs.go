package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/redis/go-redis/v9"
)

var ErrJobNotFound = errors.New("排班任务不存在或已过期")

func jobKey(id string) string {
	return fmt.Sprintf("schedule_job_%s", id)
}

// SaveJob 写入（或覆盖）排班任务，每次写入都会刷新过期时间
func (r *Repository) SaveJob(ctx context.Context, job *domain.ScheduleJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.operationTimeout())
	defer cancel()

	return r.store.Set(ctx, jobKey(job.ID), data, r.jobExpiration()).Err()
}

func (r *Repository) GetJob(ctx context.Context, id string) (*domain.ScheduleJob, error) {
	ctx, cancel := context.WithTimeout(ctx, r.operationTimeout())
	defer cancel()

	data, err := r.store.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	job := &domain.ScheduleJob{}
	if err := json.Unmarshal(data, job); err != nil {
		return nil, fmt.Errorf("排班任务 %s 数据损坏: %w", id, err)
	}

	return job, nil
}
