package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AnalysisRequest asks for one analysis of delimited location rows.
type AnalysisRequest struct {
	ID       string           `json:"id"`
	CSV      string           `json:"csv"`
	Settings LocationSettings `json:"settings"`
}

// RawMessage is an unprocessed message from the request topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ReportMessage is a finished report addressed back to its request.
type ReportMessage struct {
	RequestID string
	Report    AnalysisReport
}

// ErrEmptyRequest is returned for a request without location rows.
var ErrEmptyRequest = errors.New("analysis request has no rows")

// ParseAnalysisRequest decodes a request message. The message key is used as
// the request ID when the payload carries none.
func ParseAnalysisRequest(raw RawMessage) (AnalysisRequest, error) {
	var req AnalysisRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return AnalysisRequest{}, fmt.Errorf("decode analysis request: %w", err)
	}
	if strings.TrimSpace(req.CSV) == "" {
		return AnalysisRequest{}, ErrEmptyRequest
	}
	if err := req.Settings.Validate(); err != nil {
		return AnalysisRequest{}, err
	}
	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	return req, nil
}
