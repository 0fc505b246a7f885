package model

import (
	"time"

	"github.com/google/uuid"
)

// File is an uploaded object. Content is only populated when no external
// object store is configured; otherwise StorageObject names the object in
// the bucket.
type File struct {
	Key           string    `gorm:"type:text;primaryKey" json:"key"`
	OwnerID       uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Filename      string    `gorm:"type:text" json:"filename"`
	Extension     string    `gorm:"type:text" json:"extension"`
	ContentType   string    `gorm:"type:text" json:"content_type"`
	Size          int64     `json:"size"`
	StorageObject string    `gorm:"type:text" json:"-"`
	Content       []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// CanRead reports whether user may download the file.
func (f *File) CanRead(user User) bool {
	return user.Role == RoleAdmin || user.ID == f.OwnerID
}
