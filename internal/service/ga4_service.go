package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog/log"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"

	"marketing-insights-backend/config"
	"marketing-insights-backend/internal/model"
	"marketing-insights-backend/internal/util"
)

const analyticsReadScope = "https://www.googleapis.com/auth/analytics.readonly"

// GA4Service runs reports against the GA4 Data API. Start and end dates
// accept literal YYYY-MM-DD values or the relative vocabulary the API
// understands: "today", "yesterday", "NdaysAgo".
type GA4Service interface {
	RunReport(ctx context.Context, propertyID string, metrics, dimensions []string, startDate, endDate string, limit int64) (model.ReportOutcome, error)
	DefaultPropertyID() string
}

type googleGA4Service struct {
	client            *analyticsdata.Service
	defaultPropertyID string
	timeout           time.Duration
	retryCfg          config.RetryConfig
}

func NewGA4Service(cfg *config.Config) (GA4Service, error) {
	client, err := analyticsdata.NewService(
		context.Background(),
		option.WithCredentialsFile(cfg.GA4.CredentialsPath),
		option.WithScopes(analyticsReadScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GA4 Data API client: %w", err)
	}
	log.Info().Msg("GA4 Data API client initialized")

	return &googleGA4Service{
		client:            client,
		defaultPropertyID: cfg.GA4.DefaultPropertyID,
		timeout:           cfg.GA4.Timeout,
		retryCfg:          cfg.Retry,
	}, nil
}

func (s *googleGA4Service) DefaultPropertyID() string {
	return s.defaultPropertyID
}

func (s *googleGA4Service) RunReport(ctx context.Context, propertyID string, metrics, dimensions []string, startDate, endDate string, limit int64) (model.ReportOutcome, error) {
	req := &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{StartDate: startDate, EndDate: endDate}},
		Limit:      limit,
	}
	for _, m := range metrics {
		req.Metrics = append(req.Metrics, &analyticsdata.Metric{Name: m})
	}
	for _, d := range dimensions {
		req.Dimensions = append(req.Dimensions, &analyticsdata.Dimension{Name: d})
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var resp *analyticsdata.RunReportResponse
	op := func() error {
		var err error
		resp, err = s.client.Properties.RunReport("properties/"+propertyID, req).Context(callCtx).Do()
		if err != nil {
			if util.IsRetryable(err) {
				log.Warn().Err(err).Str("property_id", propertyID).Msg("Retryable GA4 error")
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := util.Retry(callCtx, s.retryCfg, op); err != nil {
		return model.ReportOutcome{}, fmt.Errorf("GA4 report failed: %w", err)
	}

	return transformReport(resp), nil
}

// transformReport flattens the API response into a Report. A response whose
// rows disagree with their headers is tagged Malformed instead of shaped.
func transformReport(resp *analyticsdata.RunReportResponse) model.ReportOutcome {
	if resp == nil {
		return model.MalformedOutcome("nil report response")
	}

	dimensionHeaders := make([]string, 0, len(resp.DimensionHeaders))
	for _, h := range resp.DimensionHeaders {
		dimensionHeaders = append(dimensionHeaders, h.Name)
	}
	metricHeaders := make([]string, 0, len(resp.MetricHeaders))
	for _, h := range resp.MetricHeaders {
		metricHeaders = append(metricHeaders, h.Name)
	}

	rows := make([]map[string]string, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		if len(row.DimensionValues) != len(dimensionHeaders) || len(row.MetricValues) != len(metricHeaders) {
			return model.MalformedOutcome("report row does not match headers")
		}
		rowData := make(map[string]string, len(dimensionHeaders)+len(metricHeaders))
		for i, v := range row.DimensionValues {
			rowData[dimensionHeaders[i]] = v.Value
		}
		for i, v := range row.MetricValues {
			rowData[metricHeaders[i]] = v.Value
		}
		rows = append(rows, rowData)
	}

	return model.ShapedOutcome(&model.Report{
		Rows:             rows,
		RowCount:         len(rows),
		DimensionHeaders: dimensionHeaders,
		MetricHeaders:    metricHeaders,
	})
}

// ResolveRelativeDate converts the GA4 relative-date vocabulary to a
// YYYY-MM-DD string. Literal dates pass through untouched.
func ResolveRelativeDate(relative string, now time.Time) string {
	today := now.UTC().Truncate(24 * time.Hour)
	switch {
	case relative == "today":
		return today.Format("2006-01-02")
	case relative == "yesterday":
		return today.AddDate(0, 0, -1).Format("2006-01-02")
	case strings.HasSuffix(relative, "daysAgo"):
		days, err := strconv.Atoi(strings.TrimSuffix(relative, "daysAgo"))
		if err != nil {
			return relative
		}
		return today.AddDate(0, 0, -days).Format("2006-01-02")
	default:
		return relative
	}
}
