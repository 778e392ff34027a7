// Package providers defines the contract every vendor adapter implements and
// the canonical status vocabulary the tracker uses internally.
package providers

import (
	"context"
	"encoding/json"
	"strings"

	"mediatracker/internal/domain"
)

// Status is the canonical four-value status vocabulary, independent of any
// vendor's raw status strings.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusUnknown    Status = "unknown"
)

// StartResult is the normalized outcome of a vendor "start" call.
type StartResult struct {
	ExternalID string
}

// PollResult is the normalized outcome of a vendor status check, whether it
// arrived via outbound poll or inbound webhook.
type PollResult struct {
	Status    Status
	ResultURL string
	Detail    string
}

// Adapter translates one vendor's API into the normalized contract. Adapters
// perform network calls only; they hold no state and never touch the store.
type Adapter interface {
	Vendor() domain.Vendor
	Start(ctx context.Context, input json.RawMessage) (*StartResult, error)
	PollStatus(ctx context.Context, externalID string) (*PollResult, error)
	ParseWebhook(payload []byte) (string, *PollResult, error)
}

// Registry maps vendor tags to their adapters.
type Registry map[domain.Vendor]Adapter

// Lookup returns the adapter bound to the vendor tag.
func (r Registry) Lookup(vendor domain.Vendor) (Adapter, bool) {
	a, ok := r[vendor]
	return a, ok
}

// Normalize maps a raw vendor status string through the vendor's lookup
// table. Unmapped strings yield StatusUnknown, never an error; the reconciler
// treats unknown as still-processing and logs it for investigation.
func Normalize(table map[string]Status, raw string) Status {
	if s, ok := table[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusUnknown
}
