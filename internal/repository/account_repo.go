package repository

import (
	"context"
	"errors"

	"cashledger/internal/model"

	"gorm.io/gorm"
)

var (
	ErrAccountNotFound = errors.New("账户不存在")
	ErrDuplicateKey    = errors.New("唯一键冲突")
	ErrOptimisticLock  = errors.New("乐观锁冲突，请重试")
	ErrStatusChanged   = errors.New("状态已被修改")
)

func pick(db, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return db
	}
	return tx
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, tx *gorm.DB, account *model.Account) error {
	return translate(pick(r.db, tx).WithContext(ctx).Create(account).Error)
}

func (r *AccountRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error) {
	var account model.Account
	err := pick(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Account{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}
