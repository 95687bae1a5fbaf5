package repository

import (
	"context"
	"errors"

	"cashledger/internal/model"

	"gorm.io/gorm"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create 采购与抵扣明细一起写入
func (r *PurchaseRepository) Create(ctx context.Context, tx *gorm.DB, purchase *model.Purchase, allocations []*model.AdvanceAllocation) error {
	db := pick(r.db, tx).WithContext(ctx)
	if err := db.Create(purchase).Error; err != nil {
		return translate(err)
	}
	if len(allocations) == 0 {
		return nil
	}
	return translate(db.Create(&allocations).Error)
}

func (r *PurchaseRepository) GetByReference(ctx context.Context, reference string) (*model.Purchase, error) {
	var purchase model.Purchase
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

func (r *PurchaseRepository) ListAllocations(ctx context.Context, purchaseID int64) ([]*model.AdvanceAllocation, error) {
	var allocations []*model.AdvanceAllocation
	err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("id ASC").
		Find(&allocations).Error
	return allocations, err
}
