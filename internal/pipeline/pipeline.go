// Package pipeline classifies the pending rows of one worksheet and writes
// the labels back, checkpointing the output workbook as it goes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"partcat/internal/classify"
	"partcat/internal/domain"
	"partcat/internal/fallback"
	"partcat/internal/sheet"
	"partcat/internal/textnorm"
)

type Options struct {
	InputPath  string
	OutputPath string
	Sheet      string
	Mode       domain.Mode
	BatchSize  int
	// CheckpointEvery saves the output after this many batches; 0 disables
	// intermediate saves.
	CheckpointEvery int
	// Limit caps the number of pending rows processed; 0 means no cap.
	Limit int
}

// Recorder receives the final label of every processed row, one batch at a
// time.
type Recorder interface {
	Record(records []domain.ClassificationRecord) error
}

type Pipeline struct {
	opts     Options
	labeler  labeler
	recorder Recorder
	logger   *slog.Logger
}

func New(opts Options, remote Remote, driver classify.Driver, keywords *fallback.Classifier, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if keywords == nil {
		keywords = fallback.Default()
	}
	if opts.Mode == "" {
		opts.Mode = domain.ModeCategory
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 40
	}
	if driver.Logger == nil {
		driver.Logger = logger
	}

	p := &Pipeline{opts: opts, logger: logger}
	switch opts.Mode {
	case domain.ModeBodywork:
		p.labeler = bodyworkLabeler{remote: remote, driver: driver, keywords: keywords}
	default:
		p.labeler = categoryLabeler{remote: remote, driver: driver, keywords: keywords}
	}
	return p
}

// WithRecorder attaches an optional history recorder.
func (p *Pipeline) WithRecorder(r Recorder) *Pipeline {
	p.recorder = r
	return p
}

// Run processes the sheet once. The output file is written even when no
// row is pending.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	summary := Summary{Mode: p.opts.Mode, OutputPath: p.opts.OutputPath}

	source := p.opts.InputPath
	if _, err := os.Stat(p.opts.OutputPath); err == nil {
		source = p.opts.OutputPath
		summary.Resumed = true
		p.logger.Info("resuming from existing output", "path", p.opts.OutputPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return summary, fmt.Errorf("stat output %s: %w", p.opts.OutputPath, err)
	}

	wb, err := sheet.Open(source, p.opts.Sheet)
	if err != nil {
		return summary, err
	}
	defer wb.Close()
	summary.Sheet = wb.SheetName()

	headers := wb.Headers()
	cols, err := sheet.ResolveColumns(headers)
	if err != nil {
		return summary, err
	}

	resultCol := sheet.FindColumn(headers, p.opts.Mode.ResultColumn())
	if resultCol == 0 {
		resultCol = wb.MaxColumn() + 1
		if err := wb.SetCell(1, resultCol, p.opts.Mode.ResultColumn()); err != nil {
			return summary, err
		}
	}

	pending, err := p.scan(wb, cols, resultCol, &summary)
	if err != nil {
		return summary, err
	}
	if summary.AlreadyDone > 0 {
		p.logger.Info("already classified rows skipped", "rows", summary.AlreadyDone)
	}
	if p.opts.Limit > 0 && len(pending) > p.opts.Limit {
		pending = pending[:p.opts.Limit]
	}
	summary.Pending = len(pending)

	if len(pending) == 0 {
		if err := wb.SaveAs(p.opts.OutputPath); err != nil {
			return summary, err
		}
		summary.BodyworkYes = p.countYes(wb, resultCol)
		return summary, nil
	}

	p.logger.Info("classifying", "mode", p.opts.Mode, "rows", len(pending), "batch_size", p.opts.BatchSize, "sheet", summary.Sheet)

	for start := 0; start < len(pending); start += p.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			if saveErr := wb.SaveAs(p.opts.OutputPath); saveErr != nil {
				return summary, errors.Join(err, saveErr)
			}
			return summary, err
		}

		end := start + p.opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		if err := p.processBatch(ctx, wb, batch, resultCol, &summary); err != nil {
			return summary, err
		}

		summary.Batches++
		if p.opts.CheckpointEvery > 0 && summary.Batches%p.opts.CheckpointEvery == 0 {
			if err := wb.SaveAs(p.opts.OutputPath); err != nil {
				return summary, err
			}
			summary.Checkpoints++
			p.logger.Info("progress saved", "processed", summary.Processed, "total", summary.Pending)
		}
	}

	if err := wb.SaveAs(p.opts.OutputPath); err != nil {
		return summary, err
	}
	summary.BodyworkYes = p.countYes(wb, resultCol)
	return summary, nil
}

// scan collects the rows that still need a label, clearing the result cell
// of structural blanks.
func (p *Pipeline) scan(wb *sheet.Workbook, cols sheet.Columns, resultCol int, summary *Summary) ([]domain.Row, error) {
	var pending []domain.Row
	for r := 2; r <= wb.MaxRow(); r++ {
		row := domain.Row{
			Index:       r,
			SKU:         strings.TrimSpace(wb.Cell(r, cols.SKU)),
			Description: strings.TrimSpace(wb.Cell(r, cols.Description)),
			Reference:   strings.TrimSpace(wb.Cell(r, cols.Reference)),
		}
		current := strings.TrimSpace(wb.Cell(r, resultCol))

		if row.IsBlank() {
			if wb.Cell(r, resultCol) != "" {
				if err := wb.SetCell(r, resultCol, ""); err != nil {
					return nil, err
				}
			}
			summary.Blank++
			continue
		}
		if current != "" {
			summary.AlreadyDone++
			continue
		}
		pending = append(pending, row)
	}
	return pending, nil
}

func (p *Pipeline) processBatch(ctx context.Context, wb *sheet.Workbook, batch []domain.Row, resultCol int, summary *Summary) error {
	labels := p.labeler.classify(ctx, batch)
	now := time.Now()

	records := make([]domain.ClassificationRecord, 0, len(batch))
	for _, row := range batch {
		label, ok := labels[row.Index]
		source := domain.SourceModel
		if !ok {
			label = p.labeler.fallback(row)
			source = domain.SourceFallback
			summary.Fallbacks++
		} else {
			summary.FromModel++
		}

		if err := wb.SetCell(row.Index, resultCol, label); err != nil {
			return err
		}
		summary.Processed++
		records = append(records, domain.ClassificationRecord{
			RowIndex:     row.Index,
			SKU:          row.SKU,
			Label:        label,
			Source:       source,
			ClassifiedAt: now,
		})
	}

	if p.recorder != nil {
		if err := p.recorder.Record(records); err != nil {
			p.logger.Warn("history write failed", "rows", len(records), "error", err)
		}
	}
	return nil
}

func (p *Pipeline) countYes(wb *sheet.Workbook, resultCol int) int {
	if p.opts.Mode != domain.ModeBodywork {
		return 0
	}
	n := 0
	for r := 2; r <= wb.MaxRow(); r++ {
		if textnorm.Normalize(wb.Cell(r, resultCol)) == "si" {
			n++
		}
	}
	return n
}
