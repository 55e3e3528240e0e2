package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"harvest-fleet-monitor/internal/config"
	"harvest-fleet-monitor/internal/export"
	"harvest-fleet-monitor/internal/metrics"
	"harvest-fleet-monitor/internal/models"
	"harvest-fleet-monitor/internal/parser"
	"harvest-fleet-monitor/internal/report"
	"harvest-fleet-monitor/pkg/logger"

	"github.com/google/uuid"
)

// Store receives the daily records and the run log
type Store interface {
	UpsertDailyRecords(records []models.DailyRecord) (int64, error)
	InsertRun(run *models.ProcessingRun) error
}

// Sink receives the computed report, e.g. a time-series database
type Sink interface {
	WriteReport(ctx context.Context, rep *report.Report) (int, error)
}

// Processor runs the whole chain for one export at a time
type Processor struct {
	cfg       *config.Config
	operators *config.OperatorMap
	equipment models.EquipmentType
	store     Store
	sink      Sink
}

// Result is the outcome of one processed file
type Result struct {
	File        string
	Workbook    string
	Coordinates string
	Points      int
	Report      *report.Report
	Run         models.ProcessingRun
}

// NewProcessor creates a processor. An empty equipment type is detected from
// each file name. store and sink may be nil.
func NewProcessor(cfg *config.Config, operators *config.OperatorMap, t models.EquipmentType, store Store, sink Sink) *Processor {
	return &Processor{cfg: cfg, operators: operators, equipment: t, store: store, sink: sink}
}

// DetectEquipmentType guesses the type from the vendor file name
func DetectEquipmentType(path string) (models.EquipmentType, error) {
	name := parser.Fold(filepath.Base(path))
	switch {
	case strings.Contains(name, "colhedora"), strings.Contains(name, "harvester"):
		return models.Harvester, nil
	case strings.Contains(name, "transbordo"), strings.Contains(name, "transporter"):
		return models.Transporter, nil
	}
	return "", fmt.Errorf("%w: cannot detect type of %s, use --type", models.ErrUnsupportedEquipment, filepath.Base(path))
}

// ProcessFile reads, computes and writes the outputs of one export
func (p *Processor) ProcessFile(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	res := &Result{
		File: path,
		Run: models.ProcessingRun{
			ID:            uuid.NewString(),
			File:          filepath.Base(path),
			EquipmentType: p.equipment,
			StartedAt:     start.UTC(),
			Status:        models.RunSucceeded,
		},
	}

	err := p.process(ctx, path, res)

	res.Run.FinishedAt = time.Now().UTC()
	if err != nil {
		res.Run.Status = models.RunFailed
		res.Run.Error = err.Error()
	}
	metrics.RecordFile(string(res.Run.EquipmentType), res.Run.Status, time.Since(start))

	if p.store != nil {
		if lerr := p.store.InsertRun(&res.Run); lerr != nil {
			logger.Error("failed to log run", lerr)
		}
	}
	return res, err
}

func (p *Processor) process(ctx context.Context, path string, res *Result) error {
	t := p.equipment
	if t == "" {
		detected, err := DetectEquipmentType(path)
		if err != nil {
			return err
		}
		t = detected
		res.Run.EquipmentType = t
	}

	prs, err := parser.NewParser(t, p.cfg, p.operators)
	if err != nil {
		return err
	}
	parsed, err := prs.ParseFile(path)
	if err != nil {
		return err
	}
	res.Run.RowsRead = parsed.RowsRead
	res.Run.RowsExcluded = parsed.RowsExcluded
	res.Run.RowsSkipped = parsed.RowsSkipped
	res.Run.RowsKept = len(parsed.Samples)
	metrics.RecordRows(string(t), parsed.RowsRead, parsed.RowsExcluded, parsed.RowsSkipped)

	logger.Infof("%s: %d rows read, %d excluded, %d skipped (%s)",
		filepath.Base(path), parsed.RowsRead, parsed.RowsExcluded, parsed.RowsSkipped, parsed.Encoding)

	if len(parsed.Samples) == 0 {
		return fmt.Errorf("%s: %w", filepath.Base(path), models.ErrEmptyFile)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rep := report.Build(parsed.Samples, t, p.cfg.Rules)
	res.Report = rep
	res.Run.Records = len(rep.Records)

	res.Workbook, res.Coordinates = export.OutputPaths(path, p.cfg.OutputDir)
	if err := export.WriteWorkbook(res.Workbook, rep); err != nil {
		return err
	}
	n, err := export.WriteCoordinates(res.Coordinates, rep.Samples)
	if err != nil {
		return err
	}
	if n == 0 {
		res.Coordinates = ""
	}

	if p.store != nil {
		count, err := p.store.UpsertDailyRecords(rep.Records)
		if err != nil {
			metrics.RecordUpserts("error", len(rep.Records))
			return fmt.Errorf("failed to store daily records: %w", err)
		}
		metrics.RecordUpserts("ok", int(count))
		logger.Infof("%d daily records upserted", count)
	}

	if p.sink != nil {
		points, err := p.sink.WriteReport(ctx, rep)
		if err != nil {
			// sink failures do not fail the file
			logger.Error("failed to write report to sink", err)
		}
		res.Points = points
	}
	return nil
}

// ProcessFiles processes paths one after another. A failing file is logged
// and skipped; the returned error joins every failure.
func (p *Processor) ProcessFiles(ctx context.Context, paths []string) ([]*Result, error) {
	var (
		results []*Result
		errs    []error
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := p.ProcessFile(ctx, path)
		results = append(results, res)
		if err != nil {
			logger.Error(fmt.Sprintf("skipping %s", path), err)
			errs = append(errs, err)
			continue
		}
		logger.Infof("%s -> %s", filepath.Base(path), res.Workbook)
	}
	return results, errors.Join(errs...)
}

// Failed counts the failed results
func Failed(results []*Result) int {
	n := 0
	for _, r := range results {
		if r.Run.Status == models.RunFailed {
			n++
		}
	}
	return n
}
