package constants

// DocumentStatus is the canonical processing status for rows in documents.
// A document advances monotonically and is immutable once stored.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending    DocumentStatus = "pending"    // ingested, no stage run yet
	StatusClassified DocumentStatus = "classified" // form type assigned
	StatusExtracted  DocumentStatus = "extracted"  // field mapping produced
	StatusValidated  DocumentStatus = "validated"  // validation annotations attached
	StatusStored     DocumentStatus = "stored"     // committed to the relational store
	StatusFailed     DocumentStatus = "failed"     // terminal failure; text so far retained
)

// statusRank orders the monotonic lifecycle. failed sits outside the ladder.
var statusRank = map[DocumentStatus]int{
	StatusPending:    0,
	StatusClassified: 1,
	StatusExtracted:  2,
	StatusValidated:  3,
	StatusStored:     4,
}

// Advances reports whether moving from s to next is a forward transition.
func (s DocumentStatus) Advances(next DocumentStatus) bool {
	if next == StatusFailed {
		return s != StatusStored
	}
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	return ok && nxt > cur
}

// ValidationStatus is the aggregate outcome attached to an ExtractionRecord.
type ValidationStatus string

const (
	ValidationValid        ValidationStatus = "valid"
	ValidationWithWarnings ValidationStatus = "valid-with-warnings"
	ValidationInvalid      ValidationStatus = "invalid"
)

// AcquisitionMethod records how a document's text was obtained.
type AcquisitionMethod string

const (
	MethodEmbeddedText       AcquisitionMethod = "embedded-text"
	MethodOpticalRecognition AcquisitionMethod = "optical-recognition"
)
