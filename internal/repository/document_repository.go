package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"resumerag/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Update(doc *model.Document) error {
	if err := r.db.Save(doc).Error; err != nil {
		return fmt.Errorf("update document failed: %w", err)
	}
	return nil
}

// GetByOwnerAndDocumentID returns the document record, or nil when absent.
func (r *DocumentRepository) GetByOwnerAndDocumentID(ownerID uint, documentID string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("owner_id = ? AND document_id = ?", ownerID, documentID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

// ListByOwnerID lists an owner's documents, most recently updated first.
func (r *DocumentRepository) ListByOwnerID(ownerID uint) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.Where("owner_id = ?", ownerID).Order("updated_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) CountByOwnerID(ownerID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Document{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count documents failed: %w", err)
	}
	return count, nil
}

func (r *DocumentRepository) DeleteByOwnerAndDocumentID(ownerID uint, documentID string) error {
	if err := r.db.Where("owner_id = ? AND document_id = ?", ownerID, documentID).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
