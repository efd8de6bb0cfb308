package repository

import (
	"context"
	"errors"

	"LiveFM/model"

	"gorm.io/gorm"
)

// RequestHistoryRepository persists song requests and their latest state.
type RequestHistoryRepository interface {
	Create(ctx context.Context, req model.SongRequest) error
	// UpdateState sets the state of the most recent request for contentID.
	UpdateState(ctx context.Context, contentID string, state model.SongState) error
	Recent(ctx context.Context, limit int) ([]*model.RequestHistory, error)
}

type gormRequestHistoryRepository struct {
	db *gorm.DB
}

// NewGormRequestHistoryRepository creates a GORM backed repository.
func NewGormRequestHistoryRepository(db *gorm.DB) RequestHistoryRepository {
	return &gormRequestHistoryRepository{db: db}
}

func (r *gormRequestHistoryRepository) Create(ctx context.Context, req model.SongRequest) error {
	row := &model.RequestHistory{
		RequestID:     req.RequestID,
		ContentID:     req.ContentID,
		Title:         req.Title,
		RequesterName: req.RequesterName,
		Note:          req.Note,
		State:         model.StateQueued,
		CreatedAt:     req.EnqueuedAt,
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *gormRequestHistoryRepository) UpdateState(ctx context.Context, contentID string, state model.SongState) error {
	var latest model.RequestHistory
	err := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("id DESC").
		First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return r.db.WithContext(ctx).Model(&latest).Update("state", state).Error
}

func (r *gormRequestHistoryRepository) Recent(ctx context.Context, limit int) ([]*model.RequestHistory, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []*model.RequestHistory
	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
