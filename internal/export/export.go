// Package export writes launch records to CSV or JSON files for offline
// analysis.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rovshanmuradov/pumpbot/internal/registry"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"go.uber.org/zap"
)

// Format is the export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options selects which launches are exported and where.
type Options struct {
	Format        Format
	Since         time.Time
	Until         time.Time
	Agent         string // agent wallet
	Platform      string
	OnlyGraduated bool
	OutputDir     string
}

// Lister pages through the registry.
type Lister interface {
	Tokens(ctx context.Context, q registry.Query) (*registry.Page, error)
}

// Exporter writes launch exports.
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("export"), now: time.Now}
}

// Collect reads every registered launch, newest first, stopping after
// maxPages pages when maxPages is positive.
func Collect(ctx context.Context, lister Lister, maxPages int) ([]*models.TokenLaunch, error) {
	var all []*models.TokenLaunch
	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		res, err := lister.Tokens(ctx, registry.Query{
			Page:  strconv.Itoa(page),
			Limit: strconv.Itoa(registry.MaxLimit),
			Sort:  "createdAt",
			Order: "desc",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		all = append(all, res.Tokens...)
		if int64(page) >= res.Pagination.Pages || len(res.Tokens) == 0 {
			break
		}
	}
	return all, nil
}

// Export filters launches and writes them to a new file in OutputDir. It
// returns the file path.
func (e *Exporter) Export(launches []*models.TokenLaunch, opts Options) (string, error) {
	filtered := filter(launches, opts)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no launches match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(opts.OutputDir, e.filename(opts))

	var err error
	switch opts.Format {
	case FormatCSV:
		err = writeCSV(filtered, outputPath)
	case FormatJSON:
		err = e.writeJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Launches exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(opts.Format)))
	return outputPath, nil
}

func filter(launches []*models.TokenLaunch, opts Options) []*models.TokenLaunch {
	var out []*models.TokenLaunch
	for _, l := range launches {
		if !opts.Since.IsZero() && l.CreatedAt.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && l.CreatedAt.After(opts.Until) {
			continue
		}
		if opts.Agent != "" && l.AgentWallet != opts.Agent {
			continue
		}
		if opts.Platform != "" && l.Platform != opts.Platform {
			continue
		}
		if opts.OnlyGraduated && !l.Graduated {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (e *Exporter) filename(opts Options) string {
	prefix := "launches_all"
	if opts.Platform != "" {
		prefix = "launches_" + opts.Platform
	}
	if len(opts.Agent) >= 8 {
		prefix += "_" + opts.Agent[:8]
	}
	return fmt.Sprintf("%s_%s.%s", prefix, e.now().Format("20060102_150405"), opts.Format)
}

var csvHeaders = []string{
	"created_at", "address", "symbol", "name", "agent_name", "agent_wallet",
	"platform", "market_cap", "bonding_progress", "graduated", "deploy_tx",
}

func csvRow(l *models.TokenLaunch) []string {
	return []string{
		l.CreatedAt.UTC().Format(time.RFC3339),
		l.Address,
		l.Symbol,
		l.Name,
		l.AgentName,
		l.AgentWallet,
		l.Platform,
		strconv.FormatFloat(l.MarketCap, 'f', -1, 64),
		strconv.FormatFloat(l.BondingProgress, 'f', 2, 64),
		strconv.FormatBool(l.Graduated),
		l.DeployTxHash,
	}
}

func writeCSV(launches []*models.TokenLaunch, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, l := range launches {
		if err := w.Write(csvRow(l)); err != nil {
			return fmt.Errorf("failed to write launch %s: %w", l.Address, err)
		}
	}
	w.Flush()
	return w.Error()
}

// Report is the JSON export document.
type Report struct {
	ExportTime  time.Time             `json:"export_time"`
	LaunchCount int                   `json:"launch_count"`
	Summary     Summary               `json:"summary"`
	Hourly      []HourlyStats         `json:"hourly_breakdown"`
	Launches    []*models.TokenLaunch `json:"launches"`
}

// Summary aggregates an export.
type Summary struct {
	TotalLaunches  int            `json:"total_launches"`
	Graduated      int            `json:"graduated"`
	UniqueAgents   int            `json:"unique_agents"`
	TotalMarketCap float64        `json:"total_market_cap"`
	AvgProgress    float64        `json:"avg_bonding_progress"`
	ByPlatform     map[string]int `json:"by_platform"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
}

// HourlyStats counts launches per hour of day, UTC.
type HourlyStats struct {
	Hour      int     `json:"hour"`
	Launches  int     `json:"launches"`
	MarketCap float64 `json:"market_cap"`
}

func (e *Exporter) writeJSON(launches []*models.TokenLaunch, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	report := Report{
		ExportTime:  e.now().UTC(),
		LaunchCount: len(launches),
		Summary:     Summarize(launches),
		Hourly:      hourly(launches),
		Launches:    launches,
	}
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summarize aggregates launches sorted oldest first.
func Summarize(launches []*models.TokenLaunch) Summary {
	s := Summary{TotalLaunches: len(launches), ByPlatform: map[string]int{}}
	if len(launches) == 0 {
		return s
	}
	s.StartDate = launches[0].CreatedAt
	s.EndDate = launches[len(launches)-1].CreatedAt

	agents := make(map[string]bool)
	var progress float64
	for _, l := range launches {
		if l.AgentWallet != "" {
			agents[l.AgentWallet] = true
		}
		if l.Graduated {
			s.Graduated++
		}
		s.TotalMarketCap += l.MarketCap
		progress += l.BondingProgress
		s.ByPlatform[l.Platform]++
	}
	s.UniqueAgents = len(agents)
	s.AvgProgress = progress / float64(len(launches))
	return s
}

func hourly(launches []*models.TokenLaunch) []HourlyStats {
	var buckets [24]HourlyStats
	for _, l := range launches {
		h := l.CreatedAt.UTC().Hour()
		buckets[h].Hour = h
		buckets[h].Launches++
		buckets[h].MarketCap += l.MarketCap
	}
	var out []HourlyStats
	for _, b := range buckets {
		if b.Launches > 0 {
			out = append(out, b)
		}
	}
	return out
}
