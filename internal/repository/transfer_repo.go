package repository

import (
	"context"
	"errors"

	"cashledger/internal/model"

	"gorm.io/gorm"
)

type TransferRepository struct {
	db *gorm.DB
}

func NewTransferRepository(db *gorm.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

func (r *TransferRepository) Create(ctx context.Context, tx *gorm.DB, transfer *model.Transfer) error {
	return translate(pick(r.db, tx).WithContext(ctx).Create(transfer).Error)
}

// GetByReference 按付款方 + 引用号查找，不存在返回 nil
func (r *TransferRepository) GetByReference(ctx context.Context, senderID int64, reference string) (*model.Transfer, error) {
	var transfer model.Transfer
	err := r.db.WithContext(ctx).
		Where("sender_account_id = ? AND reference = ?", senderID, reference).
		First(&transfer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transfer, nil
}
