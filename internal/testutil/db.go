package testutil

import (
	"fmt"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qs3c/fit_go_server/internal/model"
)

// SetupTestDB 创建测试数据库（SQLite 内存模式）
// 内存库每个连接各自独立，这里限制为单连接，并发测试也共享同一个库
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.User{},
		&model.PendingUser{},
		&model.WorkoutPlan{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("Warning: Failed to get underlying DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		t.Logf("Warning: Failed to close test database: %v", err)
	}
}

// TruncateTables 清空所有表数据
func TruncateTables(t *testing.T, db *gorm.DB) {
	t.Helper()

	tables := []string{
		"workout_plans",
		"pending_users",
		"users",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			t.Logf("Warning: Failed to truncate table %s: %v", table, err)
		}
	}
}

// InterleaveWrite 在 table 上第一次 UPDATE/DELETE 执行前调用 fn
// fn 拿到的会话与被拦截的语句处于同一事务，可以模拟另一个请求抢先改掉这一行
func InterleaveWrite(t *testing.T, db *gorm.DB, table string, fn func(tx *gorm.DB)) {
	t.Helper()

	var once sync.Once
	hook := func(d *gorm.DB) {
		if d.Statement.Table != table {
			return
		}
		once.Do(func() {
			fn(d.Session(&gorm.Session{NewDB: true}))
		})
	}

	if err := db.Callback().Update().Before("gorm:update").Register("testutil:interleave_update", hook); err != nil {
		t.Fatalf("Failed to register update hook: %v", err)
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("testutil:interleave_delete", hook); err != nil {
		t.Fatalf("Failed to register delete hook: %v", err)
	}
}
