package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/couchcryptid/location-analysis/internal/domain"
)

// Analyzer runs an analysis over delimited location rows.
type Analyzer interface {
	AnalyzeCSV(ctx context.Context, r io.Reader, settings domain.LocationSettings) (domain.AnalysisReport, error)
}

// RequestProcessor implements Processor by decoding analysis requests and
// handing their rows to an Analyzer.
type RequestProcessor struct {
	analyzer Analyzer
	logger   *slog.Logger
}

func NewRequestProcessor(analyzer Analyzer, logger *slog.Logger) *RequestProcessor {
	return &RequestProcessor{analyzer: analyzer, logger: logger}
}

func (p *RequestProcessor) Process(ctx context.Context, raw domain.RawMessage) (domain.ReportMessage, error) {
	req, err := domain.ParseAnalysisRequest(raw)
	if err != nil {
		return domain.ReportMessage{}, err
	}

	report, err := p.analyzer.AnalyzeCSV(ctx, strings.NewReader(req.CSV), req.Settings)
	if err != nil {
		return domain.ReportMessage{}, fmt.Errorf("analyze request %s: %w", req.ID, err)
	}

	p.logger.Debug("request analyzed",
		"request_id", req.ID,
		"report_id", report.ID,
		"locations", len(report.Locations),
	)
	return domain.ReportMessage{RequestID: req.ID, Report: report}, nil
}
