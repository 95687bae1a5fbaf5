package repository

import (
	"context"
	"errors"

	"cashledger/internal/model"

	"gorm.io/gorm"
)

var ErrBalanceRequestNotFound = errors.New("余额申请不存在")

type BalanceRequestRepository struct {
	db *gorm.DB
}

func NewBalanceRequestRepository(db *gorm.DB) *BalanceRequestRepository {
	return &BalanceRequestRepository{db: db}
}

func (r *BalanceRequestRepository) Create(ctx context.Context, tx *gorm.DB, req *model.BalanceRequest) error {
	return translate(pick(r.db, tx).WithContext(ctx).Create(req).Error)
}

func (r *BalanceRequestRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.BalanceRequest, error) {
	var req model.BalanceRequest
	err := pick(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// SaveDecision 仅当数据库中仍是 fromStatus 时写入决定
func (r *BalanceRequestRepository) SaveDecision(ctx context.Context, tx *gorm.DB, updated *model.BalanceRequest, fromStatus model.BalanceRequestStatus) error {
	if !fromStatus.CanTransitionTo(updated.Status) {
		return ErrStatusChanged
	}
	result := pick(r.db, tx).WithContext(ctx).
		Model(&model.BalanceRequest{}).
		Where("id = ? AND status = ?", updated.ID, fromStatus).
		Updates(map[string]interface{}{
			"status":        updated.Status,
			"decided_by":    updated.DecidedBy,
			"decided_at":    updated.DecidedAt,
			"decision_note": updated.DecisionNote,
			"transfer_id":   updated.TransferID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *BalanceRequestRepository) ListByAccount(ctx context.Context, accountID int64, status model.BalanceRequestStatus) ([]*model.BalanceRequest, error) {
	var reqs []*model.BalanceRequest
	query := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at DESC, id DESC").Find(&reqs).Error
	return reqs, err
}
