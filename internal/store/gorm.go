package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ScepterCode/Storemaster-sub002/internal/model"
)

// GormStore persists entity records in the entity_records table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by the given database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetAll(ctx context.Context, entityType, tenantID string) ([]Record, error) {
	var rows []model.EntityRecord
	result := s.db.WithContext(ctx).
		Where("entity_type = ? AND tenant_id = ?", entityType, tenantID).
		Order("updated_at").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			EntityID:  row.EntityID,
			Payload:   row.Payload,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return records, nil
}

func (s *GormStore) Get(ctx context.Context, entityType, tenantID, entityID string) (*Record, error) {
	var row model.EntityRecord
	result := s.db.WithContext(ctx).
		Where("entity_type = ? AND tenant_id = ? AND entity_id = ?", entityType, tenantID, entityID).
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &Record{EntityID: row.EntityID, Payload: row.Payload, UpdatedAt: row.UpdatedAt}, nil
}

func (s *GormStore) Put(ctx context.Context, entityType, tenantID, entityID string, payload []byte) error {
	row := model.EntityRecord{
		EntityType: entityType,
		TenantID:   tenantID,
		EntityID:   entityID,
		Payload:    payload,
		UpdatedAt:  time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_type"}, {Name: "tenant_id"}, {Name: "entity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
}

func (s *GormStore) Delete(ctx context.Context, entityType, tenantID, entityID string) error {
	return s.db.WithContext(ctx).
		Where("entity_type = ? AND tenant_id = ? AND entity_id = ?", entityType, tenantID, entityID).
		Delete(&model.EntityRecord{}).Error
}
