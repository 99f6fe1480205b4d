package entity

// ProcessingTask asks the processing consumer to run the ingestion state
// machine for one record. Published exactly once, at record creation.
type ProcessingTask struct {
	// EventID is a unique task id used for duplicate suppression.
	EventID int64
	// RecordID is the SpectralRecord to process.
	RecordID string
}
