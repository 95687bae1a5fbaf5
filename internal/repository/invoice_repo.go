package repository

import (
	"context"
	"errors"

	"cashledger/internal/model"

	"gorm.io/gorm"
)

var ErrInvoiceNotFound = errors.New("账单不存在")

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, tx *gorm.DB, invoice *model.Invoice) error {
	return translate(pick(r.db, tx).WithContext(ctx).Create(invoice).Error)
}

func (r *InvoiceRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Invoice, error) {
	var invoice model.Invoice
	err := pick(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// ListUnsettledByAccount 账户下所有未结清账单
func (r *InvoiceRepository) ListUnsettledByAccount(ctx context.Context, tx *gorm.DB, accountID int64) ([]*model.Invoice, error) {
	var invoices []*model.Invoice
	err := pick(r.db, tx).WithContext(ctx).
		Where("account_id = ? AND status <> ?", accountID, model.InvoiceStatusSettled).
		Order("id ASC").
		Find(&invoices).Error
	return invoices, err
}

// ApplyPayment 写回付款结果，version 不匹配说明被并发修改
func (r *InvoiceRepository) ApplyPayment(ctx context.Context, tx *gorm.DB, updated *model.Invoice, version int) error {
	result := pick(r.db, tx).WithContext(ctx).
		Model(&model.Invoice{}).
		Where("id = ? AND version = ?", updated.ID, version).
		Updates(map[string]interface{}{
			"paid_amount": updated.PaidAmount,
			"status":      updated.Status,
			"settled_at":  updated.SettledAt,
			"version":     gorm.Expr("version + 1"),
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
