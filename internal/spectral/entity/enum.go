package entity

// ProcessingStatus tracks the async post-processing of a spectral record.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"    // created, waiting for processing
	ProcessingInProgress ProcessingStatus = "processing" // async task picked the record up
	ProcessingCompleted  ProcessingStatus = "completed"  // artifact created
	ProcessingFailed     ProcessingStatus = "failed"     // no artifact, error kept in metadata
)

// CanTransition reports whether moving from s to next is a valid state change.
// Completed and failed are terminal.
func (s ProcessingStatus) CanTransition(next ProcessingStatus) bool {
	switch s {
	case ProcessingPending:
		return next == ProcessingInProgress
	case ProcessingInProgress:
		return next == ProcessingCompleted || next == ProcessingFailed
	default:
		return false
	}
}

// ArtifactType identifies the kind of derived data product.
type ArtifactType string

const (
	// ArtifactSpectral is the processed spectral table (columnar file).
	ArtifactSpectral ArtifactType = "spectral"
)

// FileType classifies stored files.
type FileType string

const (
	FileTypeLog      FileType = "log"      // raw detector log
	FileTypeSpectral FileType = "spectral" // processed columnar table
)

// SourceType records how a file came to exist.
type SourceType string

const (
	SourceUploaded  SourceType = "uploaded"
	SourceGenerated SourceType = "generated"
)
