package recordstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	inputRaw       = "RAW"
	insertRowsMode = "INSERT_ROWS"
	// Unformatted reads keep numbers free of thousands separators and currency symbols.
	renderUnformatted = "UNFORMATTED_VALUE"
	renderDateString  = "FORMATTED_STRING"
)

// SheetsStore is a Gateway over a single Google spreadsheet; each collection is a sheet tab.
type SheetsStore struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
}

// NewSheetsStore authenticates with a service-account JSON key and binds to spreadsheetID.
func NewSheetsStore(ctx context.Context, spreadsheetID string, credentialsJSON []byte) (*SheetsStore, error) {
	if len(credentialsJSON) == 0 {
		return nil, fmt.Errorf("sheets store requires service account credentials")
	}
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &SheetsStore{values: svc.Spreadsheets.Values, spreadsheetID: spreadsheetID}, nil
}

func (s *SheetsStore) ReadRange(ctx context.Context, collection, rng string) ([][]string, error) {
	if _, err := ParseRange(rng); err != nil {
		return nil, err
	}
	resp, err := s.values.Get(s.spreadsheetID, qualify(collection, rng)).
		ValueRenderOption(renderUnformatted).
		DateTimeRenderOption(renderDateString).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifySheets(fmt.Errorf("read %s: %w", rng, err))
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		out[i] = cells
	}
	return out, nil
}

func (s *SheetsStore) WriteCell(ctx context.Context, collection, cell, value string) error {
	if _, _, err := ParseCell(cell); err != nil {
		return err
	}
	body := &sheets.ValueRange{Values: [][]interface{}{{cellValue(value)}}}
	_, err := s.values.Update(s.spreadsheetID, qualify(collection, cell), body).
		ValueInputOption(inputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return classifySheets(fmt.Errorf("write %s: %w", cell, err))
	}
	return nil
}

func (s *SheetsStore) BatchWrite(ctx context.Context, collection string, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	data := make([]*sheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		if _, _, err := ParseCell(u.Cell); err != nil {
			return err
		}
		data = append(data, &sheets.ValueRange{
			Range:  qualify(collection, u.Cell),
			Values: [][]interface{}{{cellValue(u.Value)}},
		})
	}
	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: inputRaw, Data: data}
	if _, err := s.values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return classifySheets(fmt.Errorf("batch write %d cells: %w", len(updates), err))
	}
	return nil
}

func (s *SheetsStore) AppendRow(ctx context.Context, collection string, row []string) error {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = cellValue(v)
	}
	body := &sheets.ValueRange{Values: [][]interface{}{values}}
	_, err := s.values.Append(s.spreadsheetID, qualify(collection, "A:A"), body).
		ValueInputOption(inputRaw).
		InsertDataOption(insertRowsMode).
		Context(ctx).
		Do()
	if err != nil {
		return classifySheets(fmt.Errorf("append row: %w", err))
	}
	return nil
}

func qualify(collection, rng string) string {
	return "'" + strings.ReplaceAll(collection, "'", "''") + "'!" + rng
}

// cellValue sends canonical integers as numbers so sheet formulas keep working;
// anything else, including zero-padded credentials, stays text.
func cellValue(v string) interface{} {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != v {
		return v
	}
	return n
}

// cellString renders a decoded JSON cell. Numbers arrive as float64 and are
// written in plain decimal so large balances never come back as "1.2e+07".
func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func classifySheets(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return Transient(err)
		default:
			return Fatal(err)
		}
	}
	if IsTransient(err) {
		return Transient(err)
	}
	return Fatal(err)
}
