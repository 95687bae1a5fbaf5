package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenSQLite 单连接的 SQLite，用于本地调试和测试。
// 内存库每个连接都是独立的库，所以连接数固定为1。
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := Open(sqlite.Open(dsn))
	if err != nil {
		return nil, fmt.Errorf("打开 SQLite 失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
