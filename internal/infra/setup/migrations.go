package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"code-collaboration-studio/internal/domain"
)

// MigrateDB 使用 AutoMigrate 迁移全部模型。
// 所有可索引的字符串列都声明了 varchar 长度，MySQL 下无需手写建表 SQL。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	err := db.AutoMigrate(
		&domain.User{},
		&domain.Profile{},
		&domain.Room{},
		&domain.Member{},
		&domain.ChatMessage{},
		&domain.WhiteboardRecord{},
		&domain.DocumentCheckpoint{},
	)
	if err != nil {
		logrus.Errorf("Failed to auto-migrate tables: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
