// Package archive periodically exports retired score observations to
// Parquet for long-term audit, mirroring the teacher's
// services/otc-gateway/recon reconciler: GORM query for rows pending
// export, xitongsys/parquet-go writer over a plain os.File, mark-as-archived
// on success.
package archive

import (
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"gorm.io/gorm"

	"dposcore/storage/models"
)

// observationRow is the Parquet schema for one archived score.Observation
// snapshot (C5).
type observationRow struct {
	DelegateID           uint64  `parquet:"name=delegate_id, type=INT64"`
	Height               uint64  `parquet:"name=height, type=INT64"`
	Produced             uint64  `parquet:"name=produced, type=INT64"`
	Missed               uint64  `parquet:"name=missed, type=INT64"`
	LateLatencyMedian    float64 `parquet:"name=late_latency_median, type=DOUBLE"`
	EarlyLatencyMedian   float64 `parquet:"name=early_latency_median, type=DOUBLE"`
	ExpectedTxIncluded   float64 `parquet:"name=expected_tx_included, type=DOUBLE"`
	UnexpectedTxIncluded float64 `parquet:"name=unexpected_tx_included, type=DOUBLE"`
	InvalidSigned        uint64  `parquet:"name=invalid_signed, type=INT64"`
	FeeFractionMedian    float64 `parquet:"name=fee_fraction_median, type=DOUBLE"`
	Score                float64 `parquet:"name=score, type=DOUBLE"`
	CreatedAt            string  `parquet:"name=created_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Exporter writes batches of not-yet-archived Observation rows to Parquet
// files and marks them archived once the file is durably closed.
type Exporter struct {
	db *gorm.DB
}

// NewExporter constructs an Exporter over db (already AutoMigrate'd via
// storage/models.Open).
func NewExporter(db *gorm.DB) *Exporter {
	return &Exporter{db: db}
}

// ExportPending writes every Observation row with Archived = false to a new
// Parquet file at path, then marks those rows archived. Returns the number
// of rows exported; zero rows is not an error — the caller's schedule may
// simply have run with nothing new to flush.
func (e *Exporter) ExportPending(path string) (int, error) {
	var rows []models.Observation
	if err := e.db.Where("archived = ?", false).Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("archive: query pending: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := writeParquet(path, rows); err != nil {
		return 0, err
	}
	ids := make([]uint64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	if err := e.db.Model(&models.Observation{}).Where("id IN ?", ids).Update("archived", true).Error; err != nil {
		return 0, fmt.Errorf("archive: mark archived: %w", err)
	}
	return len(rows), nil
}

func writeParquet(path string, rows []models.Observation) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(observationRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("archive: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		pr := &observationRow{
			DelegateID:           row.DelegateID,
			Height:               row.Height,
			Produced:             row.Produced,
			Missed:               row.Missed,
			LateLatencyMedian:    row.LateLatencyMedian,
			EarlyLatencyMedian:   row.EarlyLatencyMedian,
			ExpectedTxIncluded:   row.ExpectedTxIncluded,
			UnexpectedTxIncluded: row.UnexpectedTxIncluded,
			InvalidSigned:        row.InvalidSigned,
			FeeFractionMedian:    row.FeeFractionMedian,
			Score:                row.Score,
			CreatedAt:            row.CreatedAt.Format(time.RFC3339),
		}
		if err := pw.Write(pr); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("archive: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("archive: parquet flush: %w", err)
	}
	return file.Close()
}
