package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"marketing-insights-backend/config"
	"marketing-insights-backend/internal/filestate"
	"marketing-insights-backend/internal/model"
	"marketing-insights-backend/internal/util"
)

// defaultCellRange covers the first visible sheet when no tab is named.
const defaultCellRange = "A1:ZZ100000"

// SheetsService reads crawl exports from Google Sheets. The first row is
// treated as headers; every following row becomes a SheetRow. Reads are
// served from an in-memory snapshot while it is fresh, so repeated queries
// against the same spreadsheet stay inside the read quota.
type SheetsService interface {
	ReadSheet(ctx context.Context, spreadsheetID, sheetName string) ([]model.SheetRow, error)
	// RefreshDefaultSnapshot re-fetches the configured default spreadsheet.
	RefreshDefaultSnapshot(ctx context.Context) error
}

type sheetSnapshot struct {
	rows      []model.SheetRow
	fetchedAt time.Time
}

type googleSheetsService struct {
	client               *sheets.Service
	defaultSpreadsheetID string
	snapshotTTL          time.Duration
	timeout              time.Duration
	retryCfg             config.RetryConfig
	state                filestate.Manager

	mu        sync.RWMutex
	snapshots map[string]sheetSnapshot
}

func NewSheetsService(cfg *config.Config, state filestate.Manager) (SheetsService, error) {
	client, err := sheets.NewService(
		context.Background(),
		option.WithCredentialsFile(cfg.Sheets.CredentialsPath),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sheets API client: %w", err)
	}
	log.Info().Msg("Google Sheets API client initialized")

	s := &googleSheetsService{
		client:               client,
		defaultSpreadsheetID: cfg.Sheets.DefaultSpreadsheetID,
		snapshotTTL:          cfg.Sheets.SnapshotTTL,
		timeout:              cfg.Sheets.Timeout,
		retryCfg:             cfg.Retry,
		state:                state,
		snapshots:            make(map[string]sheetSnapshot),
	}
	s.warmFromState()
	return s, nil
}

// warmFromState preloads snapshots persisted by a previous run. Stale
// entries are loaded too; the TTL check on read decides whether to refetch.
func (s *googleSheetsService) warmFromState() {
	if s.state == nil {
		return
	}
	saved, err := s.state.LoadState()
	if err != nil {
		log.Warn().Err(err).Msg("Could not load persisted sheet snapshots")
		return
	}
	for key, snap := range saved {
		s.snapshots[key] = sheetSnapshot{rows: snap.Rows, fetchedAt: time.Unix(snap.FetchedAt, 0)}
	}
	if len(saved) > 0 {
		log.Info().Int("snapshots", len(saved)).Msg("Warmed sheet cache from persisted state")
	}
}

// persistSnapshots writes the current cache to disk. Persistence failures
// only cost warm starts, so they are logged and swallowed.
func (s *googleSheetsService) persistSnapshots() {
	if s.state == nil {
		return
	}
	s.mu.RLock()
	saved := make(filestate.SnapshotState, len(s.snapshots))
	for key, snap := range s.snapshots {
		saved[key] = filestate.SavedSnapshot{FetchedAt: snap.fetchedAt.Unix(), Rows: snap.rows}
	}
	s.mu.RUnlock()

	if err := s.state.SaveState(saved); err != nil {
		log.Warn().Err(err).Msg("Could not persist sheet snapshots")
	}
}

func (s *googleSheetsService) ReadSheet(ctx context.Context, spreadsheetID, sheetName string) ([]model.SheetRow, error) {
	sheetID := spreadsheetID
	if sheetID == "" {
		sheetID = s.defaultSpreadsheetID
	}
	if sheetID == "" {
		return nil, fmt.Errorf("no spreadsheet ID provided and no default configured")
	}

	key := sheetID + "/" + sheetName
	s.mu.RLock()
	snap, ok := s.snapshots[key]
	s.mu.RUnlock()
	if ok && time.Since(snap.fetchedAt) < s.snapshotTTL {
		return snap.rows, nil
	}

	rows, err := s.fetch(ctx, sheetID, sheetName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.snapshots[key] = sheetSnapshot{rows: rows, fetchedAt: time.Now()}
	s.mu.Unlock()
	s.persistSnapshots()
	return rows, nil
}

func (s *googleSheetsService) RefreshDefaultSnapshot(ctx context.Context) error {
	if s.defaultSpreadsheetID == "" {
		return nil
	}
	rows, err := s.fetch(ctx, s.defaultSpreadsheetID, "")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snapshots[s.defaultSpreadsheetID+"/"] = sheetSnapshot{rows: rows, fetchedAt: time.Now()}
	s.mu.Unlock()
	s.persistSnapshots()
	log.Info().Int("rows", len(rows)).Msg("Sheet snapshot refreshed")
	return nil
}

func (s *googleSheetsService) fetch(ctx context.Context, spreadsheetID, sheetName string) ([]model.SheetRow, error) {
	cellRange := defaultCellRange
	if sheetName != "" {
		cellRange = sheetName
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var resp *sheets.ValueRange
	op := func() error {
		var err error
		resp, err = s.client.Spreadsheets.Values.Get(spreadsheetID, cellRange).Context(callCtx).Do()
		if err != nil {
			if util.IsRetryable(err) {
				log.Warn().Err(err).Str("spreadsheet_id", spreadsheetID).Msg("Retryable Sheets error")
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := util.Retry(callCtx, s.retryCfg, op); err != nil {
		return nil, fmt.Errorf("sheet read failed: %w", err)
	}

	return valuesToRows(resp.Values), nil
}

// valuesToRows turns the raw value grid into header-keyed rows. Short rows
// are padded with empty strings so every row carries the full column set.
func valuesToRows(values [][]interface{}) []model.SheetRow {
	if len(values) < 2 {
		return nil
	}

	headers := make([]string, len(values[0]))
	for i, v := range values[0] {
		headers[i] = strings.TrimSpace(fmt.Sprint(v))
	}

	rows := make([]model.SheetRow, 0, len(values)-1)
	for _, raw := range values[1:] {
		row := make(model.SheetRow, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(raw) {
				row[header] = fmt.Sprint(raw[i])
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// FilterRows keeps rows whose values match every filter, compared
// case-insensitively after string coercion.
func FilterRows(rows []model.SheetRow, filters map[string]interface{}) []model.SheetRow {
	filtered := rows
	for column, value := range filters {
		want := strings.ToLower(fmt.Sprint(value))
		var next []model.SheetRow
		for _, row := range filtered {
			if got, ok := row[column]; ok && strings.ToLower(got) == want {
				next = append(next, row)
			}
		}
		filtered = next
	}
	return filtered
}

// AggregateRows partitions rows by the group key and reduces each partition.
// count counts rows; sum/avg/min/max parse aggregateColumn numerically and
// skip unparsable or missing values. An empty partition reduces to 0 for
// every operation.
func AggregateRows(rows []model.SheetRow, groupBy, aggregateColumn, operation string) map[string]float64 {
	if groupBy == "" {
		return map[string]float64{"total": float64(len(rows))}
	}

	groups := make(map[string][]model.SheetRow)
	for _, row := range rows {
		key := row[groupBy]
		if key == "" {
			key = "Unknown"
		}
		groups[key] = append(groups[key], row)
	}

	results := make(map[string]float64, len(groups))
	for key, group := range groups {
		if operation == "" || operation == "count" || aggregateColumn == "" {
			results[key] = float64(len(group))
			continue
		}

		var values []float64
		for _, row := range group {
			raw, ok := row[aggregateColumn]
			if !ok || raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				continue
			}
			values = append(values, v)
		}

		results[key] = reduce(values, operation)
	}
	return results
}

func reduce(values []float64, operation string) float64 {
	if len(values) == 0 {
		return 0
	}
	switch operation {
	case "sum":
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum
	case "avg":
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case "min":
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case "max":
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max
	default:
		return float64(len(values))
	}
}
