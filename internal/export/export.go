// Package export writes position snapshots to disk for post-run analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options configures the export behavior
type Options struct {
	Format     Format
	MintFilter string // Filter by token mint
	OnlyOpen   bool   // Only export positions that still hold tokens
	OutputDir  string
}

// SnapshotExporter writes position snapshots in CSV or JSON form.
type SnapshotExporter struct {
	logger *zap.Logger
}

// NewSnapshotExporter creates a new snapshot exporter
func NewSnapshotExporter(logger *zap.Logger) *SnapshotExporter {
	return &SnapshotExporter{
		logger: logger.Named("export"),
	}
}

// Export writes the filtered snapshot and returns the created file path.
func (se *SnapshotExporter) Export(positions []position.Position, options Options) (string, error) {
	filtered := se.filterPositions(positions, options)

	if len(filtered) == 0 {
		return "", fmt.Errorf("no positions match the export criteria")
	}

	// Oldest snipe first
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	filename := se.generateFilename(options)
	outputPath := filepath.Join(options.OutputDir, filename)

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = se.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = se.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}

	if err != nil {
		return "", err
	}

	se.logger.Info("Positions exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// filterPositions applies filters to the snapshot
func (se *SnapshotExporter) filterPositions(positions []position.Position, options Options) []position.Position {
	var filtered []position.Position

	for _, pos := range positions {
		if options.MintFilter != "" && pos.MintAddress != options.MintFilter {
			continue
		}
		if options.OnlyOpen && !pos.Open() {
			continue
		}
		filtered = append(filtered, pos)
	}

	return filtered
}

// generateFilename creates a filename based on export options
func (se *SnapshotExporter) generateFilename(options Options) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "positions_all"
	if options.OnlyOpen {
		prefix = "positions_open"
	}

	if options.MintFilter != "" {
		tag := options.MintFilter
		if len(tag) > 8 {
			tag = tag[:8]
		}
		prefix += "_" + tag
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

func csvHeaders() []string {
	return []string{
		"id", "mint", "name", "symbol", "status",
		"buy_price", "current_price", "pnl_percent",
		"sol_spent", "token_amount", "sold_percentage",
		"buy_signature", "created_at", "last_price_update_at",
	}
}

func csvRecord(pos position.Position) []string {
	return []string{
		strconv.FormatUint(pos.ID, 10),
		pos.MintAddress,
		pos.Name,
		pos.Symbol,
		pos.Status,
		strconv.FormatFloat(pos.BuyPrice, 'f', -1, 64),
		strconv.FormatFloat(pos.CurrentPrice, 'f', -1, 64),
		strconv.FormatFloat(pos.PnLPercent(), 'f', 2, 64),
		strconv.FormatFloat(pos.SolSpent, 'f', -1, 64),
		strconv.FormatUint(pos.TokenAmountHeld, 10),
		strconv.FormatFloat(pos.SoldPercentage, 'f', -1, 64),
		pos.BuySignature,
		pos.CreatedAt.Format(time.RFC3339),
		pos.LastPriceUpdateAt.Format(time.RFC3339),
	}
}

// exportToCSV exports positions to CSV format
func (se *SnapshotExporter) exportToCSV(positions []position.Position, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, pos := range positions {
		if err := writer.Write(csvRecord(pos)); err != nil {
			return fmt.Errorf("failed to write position: %w", err)
		}
	}

	return nil
}

// exportToJSON exports positions to JSON format with metadata
func (se *SnapshotExporter) exportToJSON(positions []position.Position, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime    time.Time           `json:"export_time"`
		PositionCount int                 `json:"position_count"`
		Positions     []position.Position `json:"positions"`
		Summary       Summary             `json:"summary"`
	}{
		ExportTime:    time.Now(),
		PositionCount: len(positions),
		Positions:     positions,
		Summary:       se.calculateSummary(positions),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// Summary contains aggregate statistics for an exported snapshot
type Summary struct {
	TotalPositions  int       `json:"total_positions"`
	OpenPositions   int       `json:"open_positions"`
	PartiallySold   int       `json:"partially_sold"`
	FullySold       int       `json:"fully_sold"`
	UniqueMints     int       `json:"unique_mints"`
	TotalSolSpent   float64   `json:"total_sol_spent"`
	AvgPnLPercent   float64   `json:"avg_pnl_percent"`
	BestPnLPercent  float64   `json:"best_pnl_percent"`
	WorstPnLPercent float64   `json:"worst_pnl_percent"`
	FirstOpenedAt   time.Time `json:"first_opened_at"`
	LastOpenedAt    time.Time `json:"last_opened_at"`
}

// calculateSummary aggregates the snapshot statistics
func (se *SnapshotExporter) calculateSummary(positions []position.Position) Summary {
	summary := Summary{
		TotalPositions: len(positions),
	}

	if len(positions) == 0 {
		return summary
	}

	summary.FirstOpenedAt = positions[0].CreatedAt
	summary.LastOpenedAt = positions[len(positions)-1].CreatedAt

	mintSet := make(map[string]bool)
	var pnlSum float64
	var pnlCount int

	for _, pos := range positions {
		mintSet[pos.MintAddress] = true
		summary.TotalSolSpent += pos.SolSpent

		switch {
		case pos.SoldPercentage >= 100:
			summary.FullySold++
		case pos.SoldPercentage > 0:
			summary.PartiallySold++
			summary.OpenPositions++
		default:
			summary.OpenPositions++
		}

		if pos.BuyPrice > 0 {
			pnl := pos.PnLPercent()
			pnlSum += pnl
			pnlCount++
			if pnlCount == 1 || pnl > summary.BestPnLPercent {
				summary.BestPnLPercent = pnl
			}
			if pnlCount == 1 || pnl < summary.WorstPnLPercent {
				summary.WorstPnLPercent = pnl
			}
		}
	}

	summary.UniqueMints = len(mintSet)
	if pnlCount > 0 {
		summary.AvgPnLPercent = pnlSum / float64(pnlCount)
	}

	return summary
}
