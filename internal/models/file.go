package models

import (
	"strings"

	"github.com/google/uuid"
)

type FileType string

const (
	FileTypeFolder FileType = "folder"
	FileTypeFile   FileType = "file"
	FileTypeImage  FileType = "image"
)

func ParseFileType(value string) (FileType, bool) {
	switch t := FileType(strings.TrimSpace(value)); t {
	case FileTypeFolder, FileTypeFile, FileTypeImage:
		return t, true
	default:
		return "", false
	}
}

// ThumbnailWidths are the derivative widths generated for every image.
var ThumbnailWidths = []int{500, 250, 100}

// File is a file or folder record. A nil ParentID places the record at the
// root; LocalPath is the blob-store key and is empty for folders.
type File struct {
	BaseModel
	UserID    uuid.UUID  `json:"userId" gorm:"type:uuid;not null;index"`
	Name      string     `json:"name" gorm:"type:varchar(255);not null"`
	Type      FileType   `json:"type" gorm:"type:varchar(10);not null;index"`
	IsPublic  bool       `json:"isPublic" gorm:"not null;default:false"`
	ParentID  *uuid.UUID `json:"parentId" gorm:"type:uuid;index"`
	LocalPath *string    `json:"-" gorm:"type:text"`
}

func (f *File) IsFolder() bool {
	return f.Type == FileTypeFolder
}

func (File) TableName() string {
	return "files"
}
