package repository

import (
	"context"
	"errors"
	"time"

	"cashledger/internal/model"

	"gorm.io/gorm"
)

var ErrAdvanceNotFound = errors.New("预付款不存在")

type AdvanceRepository struct {
	db *gorm.DB
}

func NewAdvanceRepository(db *gorm.DB) *AdvanceRepository {
	return &AdvanceRepository{db: db}
}

func (r *AdvanceRepository) Create(ctx context.Context, tx *gorm.DB, advance *model.SupplierAdvance) error {
	return translate(pick(r.db, tx).WithContext(ctx).Create(advance).Error)
}

func (r *AdvanceRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.SupplierAdvance, error) {
	var advance model.SupplierAdvance
	err := pick(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&advance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdvanceNotFound
		}
		return nil, err
	}
	return &advance, nil
}

// ListBySupplier 供应商全部预付款，按发放顺序
func (r *AdvanceRepository) ListBySupplier(ctx context.Context, tx *gorm.DB, supplierID int64) ([]*model.SupplierAdvance, error) {
	var advances []*model.SupplierAdvance
	err := pick(r.db, tx).WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("issued_at ASC, id ASC").
		Find(&advances).Error
	return advances, err
}

// ListOverdue 期限已过且未抵扣完的预付款
func (r *AdvanceRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*model.SupplierAdvance, error) {
	var advances []*model.SupplierAdvance
	err := r.db.WithContext(ctx).
		Where("deadline IS NOT NULL AND deadline < ? AND status <> ?", now, model.AdvanceStatusRepaid).
		Order("deadline ASC, id ASC").
		Limit(limit).
		Find(&advances).Error
	return advances, err
}

// Save 带版本号写回状态和抵扣金额
func (r *AdvanceRepository) Save(ctx context.Context, tx *gorm.DB, updated *model.SupplierAdvance) error {
	version := updated.Version
	result := pick(r.db, tx).WithContext(ctx).
		Model(&model.SupplierAdvance{}).
		Where("id = ? AND version = ?", updated.ID, version).
		Updates(map[string]interface{}{
			"consumed_amount": updated.ConsumedAmount,
			"status":          updated.Status,
			"arrived_at":      updated.ArrivedAt,
			"repaid_at":       updated.RepaidAt,
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	updated.Version = version + 1
	return nil
}
