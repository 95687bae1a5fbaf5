package service

import (
	"context"
	"errors"

	"cashledger/internal/infrastructure/lock"
	"cashledger/internal/infrastructure/logger"
	"cashledger/internal/ledger"
	"cashledger/internal/repository"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// check 结构体校验，失败统一转成 ValidationError
func (s *LedgerService) check(req interface{}) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ledger.NewError(ledger.KindValidation, "字段 %s 校验失败: %s", fe.Field(), fe.Tag())
		}
		return ledger.WrapError(ledger.KindValidation, err, "参数不合法")
	}
	return nil
}

// acquire 按固定顺序获取多个 key。
// 超时或调用方取消返回 LockTimeout，锁服务本身出错返回 StoreUnavailable。
func (s *LedgerService) acquire(ctx context.Context, keys ...string) (lock.Release, error) {
	release, err := s.locker.Acquire(ctx, keys...)
	if err != nil {
		switch {
		case errors.Is(err, lock.ErrTimeout):
			return nil, ledger.WrapError(ledger.KindLockTimeout, err, "获取账户锁超时，请稍后重试")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, ledger.WrapError(ledger.KindLockTimeout, err, "等待账户锁时请求已取消")
		}
		return nil, ledger.WrapError(ledger.KindStoreUnavailable, err, "锁服务不可用")
	}
	return release, nil
}

// commit 单事务提交。事务开始后忽略调用方的取消，避免只落一半。
func (s *LedgerService) commit(ctx context.Context, fn func(tx *gorm.DB) error) error {
	commitCtx := context.WithoutCancel(ctx)
	err := s.db.WithContext(commitCtx).Transaction(fn)
	if err != nil {
		return storeError(err, "提交失败")
	}
	return nil
}

// storeError 把存储层错误映射到领域错误
func storeError(err error, msg string) error {
	var le *ledger.Error
	if errors.As(err, &le) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrDuplicateKey):
		return ledger.WrapError(ledger.KindDuplicateEntry, err, "%s: 引用号已被使用", msg)
	case errors.Is(err, repository.ErrOptimisticLock), errors.Is(err, repository.ErrStatusChanged):
		return ledger.WrapError(ledger.KindLockTimeout, err, "%s: 记录被并发修改", msg)
	}
	return ledger.WrapError(ledger.KindStoreUnavailable, err, "%s", msg)
}

func (s *LedgerService) ensureReferenceUnused(ctx context.Context, accountID int64, reference string) error {
	exists, err := s.entryRepo.ReferenceExists(ctx, nil, accountID, reference)
	if err != nil {
		return storeError(err, "查询引用号失败")
	}
	if exists {
		return ledger.NewError(ledger.KindDuplicateEntry, "账户 %d 已存在引用号 %s", accountID, reference)
	}
	return nil
}

// ctxLog 优先使用请求上下文中带 request_id 的 logger
func (s *LedgerService) ctxLog(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.log)
}
