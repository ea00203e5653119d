package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReportRunMessage asks the worker to rebuild the fine report. It carries
// no report data; the worker reads everything fresh from the sheets.
type ReportRunMessage struct {
	RequestID   string    `json:"requestId"`
	RequestedBy string    `json:"requestedBy,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewReportRunMessage creates a request stamped with a fresh ID.
func NewReportRunMessage(requestedBy string) *ReportRunMessage {
	return &ReportRunMessage{
		RequestID:   uuid.NewString(),
		RequestedBy: requestedBy,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportRunMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportRunMessageFromJSON(data []byte) (*ReportRunMessage, error) {
	var msg ReportRunMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
