package domain

import (
	"encoding/json"
	"time"
)

// Vendor enumerates the external generation providers a job can be submitted to.
type Vendor string

const (
	VendorVideoGen    Vendor = "video_gen"
	VendorVoiceClone  Vendor = "voice_clone"
	VendorPhotoAvatar Vendor = "photo_avatar"
	VendorTranslation Vendor = "translation"
	VendorImageGen    Vendor = "image_gen"
)

// Vendors lists every supported vendor tag.
var Vendors = []Vendor{
	VendorVideoGen,
	VendorVoiceClone,
	VendorPhotoAvatar,
	VendorTranslation,
	VendorImageGen,
}

// Valid reports whether v is a known vendor tag.
func (v Vendor) Valid() bool {
	for _, known := range Vendors {
		if v == known {
			return true
		}
	}
	return false
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusExpired    JobStatus = "expired"
)

// Terminal reports whether s is a terminal state. Terminal jobs never
// transition again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusExpired:
		return true
	}
	return false
}

// Job tracks one unit of vendor work from submission to a terminal outcome.
// Exactly one of ResultURL/ErrorDetail is populated once Status is terminal.
type Job struct {
	ID           string
	OwnerID      string
	Vendor       Vendor
	ExternalID   string
	Status       JobStatus
	Input        json.RawMessage
	ResultURL    string
	ErrorDetail  string
	Attempt      int
	CreatedAt    time.Time
	LastPolledAt *time.Time
	TerminalAt   *time.Time
}
