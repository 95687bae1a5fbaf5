package repository

import (
	"context"

	"cashledger/internal/model"

	"gorm.io/gorm"
)

// EntryRepository 流水只有插入和查询，没有更新和删除
type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// CreateBatch 一次插入多条流水，调用方负责放在事务里
func (r *EntryRepository) CreateBatch(ctx context.Context, tx *gorm.DB, entries []*model.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return translate(pick(r.db, tx).WithContext(ctx).Create(&entries).Error)
}

// ListByAccount 按规范顺序 (occurred_at, id) 返回账户全部流水
func (r *EntryRepository) ListByAccount(ctx context.Context, tx *gorm.DB, accountID int64) ([]*model.LedgerEntry, error) {
	var entries []*model.LedgerEntry
	err := pick(r.db, tx).WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("occurred_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// ListPage 分页查询流水，最新在前
func (r *EntryRepository) ListPage(ctx context.Context, accountID int64, page, pageSize int) ([]*model.LedgerEntry, int64, error) {
	var entries []*model.LedgerEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).Where("account_id = ?", accountID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("occurred_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	return entries, total, err
}

// CountByAccount 账户流水条数。流水只追加，条数相同即内容相同。
func (r *EntryRepository) CountByAccount(ctx context.Context, tx *gorm.DB, accountID int64) (int64, error) {
	var count int64
	err := pick(r.db, tx).WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count, err
}

// ReferenceExists 检查账户下 reference 是否已被使用
func (r *EntryRepository) ReferenceExists(ctx context.Context, tx *gorm.DB, accountID int64, reference string) (bool, error) {
	var count int64
	err := pick(r.db, tx).WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("account_id = ? AND reference = ?", accountID, reference).
		Count(&count).Error
	return count > 0, err
}
