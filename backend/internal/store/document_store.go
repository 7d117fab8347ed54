package store

import (
	"context"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// DocumentMeta 是 documents 表的 gorm 模型
type DocumentMeta struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	DocID   string `gorm:"column:doc_id;uniqueIndex;size:64"`
	Title   string `gorm:"size:255;index"`
	OwnerID uint64 `gorm:"column:owner_id"`
}

func (DocumentMeta) TableName() string { return "documents" }

func InitMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&DocumentMeta{}); err != nil {
		return nil, err
	}
	return db, nil
}

type DocumentStore struct{ db *gorm.DB }

func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) GetDocumentID(ctx context.Context, title string) (string, error) {
	var meta DocumentMeta
	if err := s.db.WithContext(ctx).Where("title = ?", title).First(&meta).Error; err != nil {
		return "", err
	}
	return meta.DocID, nil
}

func (s *DocumentStore) CreateDocument(ctx context.Context, ownerID uint64, title, docID string) error {
	meta := DocumentMeta{DocID: docID, Title: title, OwnerID: ownerID}
	return s.db.WithContext(ctx).Create(&meta).Error
}

func (s *DocumentStore) ListDocuments(ctx context.Context, ownerID uint64) ([]DocumentMeta, error) {
	var metas []DocumentMeta
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&metas).Error; err != nil {
		return nil, err
	}
	return metas, nil
}
