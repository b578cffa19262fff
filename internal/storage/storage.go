package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/NewsWatch/internal/collector"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 字段长度上限，与表结构保持一致
const (
	titleMaxRunes   = 512
	summaryMaxRunes = 2000
	authorMaxRunes  = 256
)

// DeliveredNews 已投递记录的归档。仅作输出日志，不参与去重。
type DeliveredNews struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:512" json:"title"`
	Summary     string    `gorm:"size:2000" json:"summary"`
	Author      string    `gorm:"size:256;index" json:"author"`
	DeliveredAt time.Time `gorm:"index" json:"deliveredAt"`

	CreatedAt time.Time `json:"createdAt"`
}

// Archive 把每条投递的记录写入 Postgres
type Archive struct {
	DB *gorm.DB
}

func OpenArchive(dsn string) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return NewArchive(db)
}

// NewArchive 使用已打开的连接，并确保表结构存在
func NewArchive(db *gorm.DB) (*Archive, error) {
	if err := db.AutoMigrate(&DeliveredNews{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &Archive{DB: db}, nil
}

func (a *Archive) Deliver(ctx context.Context, item collector.NewsItem) error {
	row := &DeliveredNews{
		Title:       truncateRunesDB(toValidUTF8(item.Title), titleMaxRunes),
		Summary:     truncateRunesDB(toValidUTF8(item.Summary), summaryMaxRunes),
		Author:      truncateRunesDB(toValidUTF8(item.Author), authorMaxRunes),
		DeliveredAt: time.Now(),
	}
	if err := a.DB.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("archive %q: %w", item.Title, err)
	}
	return nil
}

// recent 按投递时间倒序返回最近的归档
func (a *Archive) recent(ctx context.Context, limit int) ([]DeliveredNews, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}
	var list []DeliveredNews
	err := a.DB.WithContext(ctx).Order("delivered_at DESC").Order("id DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (a *Archive) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断，确保不会超过字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
