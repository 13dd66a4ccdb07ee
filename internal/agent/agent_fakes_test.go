package agent_test

import (
	"context"
	"encoding/json"
	"errors"

	"marketing-insights-backend/internal/model"
)

type fakeLLM struct {
	textResponse    string
	textErr         error
	structuredJSON  string
	structuredErr   error
	textCalls       int
	structuredCalls int
	lastPrompt      string
}

func (f *fakeLLM) GenerateText(_ context.Context, prompt, _ string, _ float64) (string, error) {
	f.textCalls++
	f.lastPrompt = prompt
	return f.textResponse, f.textErr
}

func (f *fakeLLM) GenerateStructured(_ context.Context, _, _ string, _ float64, out interface{}) error {
	f.structuredCalls++
	if f.structuredErr != nil {
		return f.structuredErr
	}
	return json.Unmarshal([]byte(f.structuredJSON), out)
}

type ga4Call struct {
	metrics    []string
	dimensions []string
	startDate  string
	endDate    string
	limit      int64
}

// fakeGA4 serves queued outcomes in FIFO order and records every call.
type fakeGA4 struct {
	defaultProperty string
	outcomes        []model.ReportOutcome
	err             error
	calls           []ga4Call
}

func (f *fakeGA4) RunReport(_ context.Context, _ string, metrics, dimensions []string, startDate, endDate string, limit int64) (model.ReportOutcome, error) {
	f.calls = append(f.calls, ga4Call{metrics: metrics, dimensions: dimensions, startDate: startDate, endDate: endDate, limit: limit})
	if f.err != nil {
		return model.ReportOutcome{}, f.err
	}
	if len(f.outcomes) == 0 {
		return model.ReportOutcome{}, errors.New("no outcome queued")
	}
	next := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return next, nil
}

func (f *fakeGA4) DefaultPropertyID() string {
	return f.defaultProperty
}

type fakeSheets struct {
	rows      []model.SheetRow
	err       error
	readCalls int
}

func (f *fakeSheets) ReadSheet(_ context.Context, _, _ string) ([]model.SheetRow, error) {
	f.readCalls++
	return f.rows, f.err
}

func (f *fakeSheets) RefreshDefaultSnapshot(_ context.Context) error {
	return nil
}

func shapedReport(rows []map[string]string) model.ReportOutcome {
	return model.ShapedOutcome(&model.Report{Rows: rows, RowCount: len(rows)})
}

func emptyReport() model.ReportOutcome {
	return model.ShapedOutcome(&model.Report{Rows: []map[string]string{}, RowCount: 0})
}
