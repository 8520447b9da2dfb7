package model

import "time"

// Document is the metadata record for one indexed resume. Its lifecycle is
// tied 1:1 to the vector collection for (OwnerID, DocumentID), but it is
// stored independently of the vector data.
type Document struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OwnerID    uint      `gorm:"not null;uniqueIndex:idx_owner_document" json:"owner_id"`
	DocumentID string    `gorm:"size:64;not null;uniqueIndex:idx_owner_document" json:"document_id"`
	Name       string    `gorm:"size:256;not null" json:"name"`
	Content    string    `gorm:"type:mediumtext;not null" json:"-"`
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	TextLength int       `gorm:"not null" json:"text_length"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
