package entity

import "time"

// SpectralArtifact links a processed file to its source record. At most one
// artifact of a given type exists per record; re-processing would create a
// new artifact, never mutate an old one.
type SpectralArtifact struct {
	ID string `gorm:"primaryKey;size:36"`

	SpectralRecordID string       `gorm:"uniqueIndex:uniq_record_artifact;size:36"`
	ArtifactType     ArtifactType `gorm:"uniqueIndex:uniq_record_artifact;size:16"`

	FileID string `gorm:"size:36"`
	File   *File

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// File is a stored blob plus its metadata row. The blob itself lives in the
// blob store under the file's ID; rows here are write-once.
type File struct {
	ID         string     `gorm:"primaryKey;size:36"`
	Filename   string     `gorm:"size:255"`
	FileType   FileType   `gorm:"index;size:16"`
	SourceType SourceType `gorm:"size:16"`
	Owner      string     `gorm:"size:80"`
	SizeBytes  int64
	Metadata   Metadata  `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}
