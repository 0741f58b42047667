package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/janhq/image-upload/internal/domain/tagging"
	"github.com/janhq/image-upload/internal/domain/upload"
	"github.com/janhq/image-upload/internal/infrastructure/database/entities"
)

// Postgres persists duplicate records through gorm.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Record(ctx context.Context, rec tagging.DuplicateRecord) error {
	tags := rec.Tags
	if tags == nil {
		tags = []upload.TagRecord{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	entity := entities.UploadDuplicate{
		StorageKey: rec.Key,
		Tags:       datatypes.JSON(raw),
		DetectedAt: rec.DetectedAt,
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"tags", "detected_at", "updated_at"}),
	}).Create(&entity).Error
	if err != nil {
		return fmt.Errorf("upsert duplicate %s: %w", rec.Key, err)
	}
	return nil
}

func (p *Postgres) Lookup(ctx context.Context, key string) (tagging.DuplicateRecord, bool, error) {
	var entity entities.UploadDuplicate
	err := p.db.WithContext(ctx).Where("storage_key = ?", key).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tagging.DuplicateRecord{}, false, nil
	}
	if err != nil {
		return tagging.DuplicateRecord{}, false, fmt.Errorf("find duplicate %s: %w", key, err)
	}
	return mapEntity(entity)
}

func (p *Postgres) Clear(ctx context.Context, key string) error {
	err := p.db.WithContext(ctx).Where("storage_key = ?", key).Delete(&entities.UploadDuplicate{}).Error
	if err != nil {
		return fmt.Errorf("delete duplicate %s: %w", key, err)
	}
	return nil
}

func mapEntity(entity entities.UploadDuplicate) (tagging.DuplicateRecord, bool, error) {
	var tags []upload.TagRecord
	if len(entity.Tags) > 0 {
		if err := json.Unmarshal(entity.Tags, &tags); err != nil {
			return tagging.DuplicateRecord{}, false, fmt.Errorf("decode tags: %w", err)
		}
	}
	return tagging.DuplicateRecord{
		Key:        entity.StorageKey,
		Tags:       tags,
		DetectedAt: entity.DetectedAt,
	}, true, nil
}
