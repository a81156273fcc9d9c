package recordstore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func TestCellValue(t *testing.T) {
	assert.Equal(t, int64(42), cellValue("42"))
	assert.Equal(t, int64(-3), cellValue("-3"))
	assert.Equal(t, "0123", cellValue("0123"))
	assert.Equal(t, "AB12", cellValue("AB12"))
	assert.Equal(t, "", cellValue(""))
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "12345678", cellString(float64(12345678)))
	assert.Equal(t, "1200", cellString(1200.0))
	assert.Equal(t, "12.5", cellString(12.5))
	assert.Equal(t, "-3", cellString(float64(-3)))
	assert.Equal(t, "AB12", cellString("AB12"))
	assert.Equal(t, "TRUE", strings.ToUpper(cellString(true)))
	assert.Equal(t, "", cellString(nil))
}

func TestQualifyEscapesQuotes(t *testing.T) {
	assert.Equal(t, "'Sheet1'!A:K", qualify("Sheet1", "A:K"))
	assert.Equal(t, "'Bob''s'!G5", qualify("Bob's", "G5"))
}

func TestClassifySheets(t *testing.T) {
	rateLimited := fmt.Errorf("read: %w", &googleapi.Error{Code: http.StatusTooManyRequests})
	assert.True(t, IsTransient(classifySheets(rateLimited)))

	forbidden := fmt.Errorf("read: %w", &googleapi.Error{Code: http.StatusForbidden})
	assert.False(t, IsTransient(classifySheets(forbidden)))
}

func TestSheetsReadRangeRequestsUnformattedValues(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"range":"Sheet1!A2:K2","majorDimension":"ROWS","values":[["s1","Ana",1200,12345678,"0123"]]}`)
	}))
	defer srv.Close()

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	store := &SheetsStore{values: svc.Spreadsheets.Values, spreadsheetID: "book"}

	rows, err := store.ReadRange(context.Background(), "Sheet1", "A2:K2")
	require.NoError(t, err)
	assert.Contains(t, query, "valueRenderOption=UNFORMATTED_VALUE")
	assert.Contains(t, query, "dateTimeRenderOption=FORMATTED_STRING")
	assert.Equal(t, [][]string{{"s1", "Ana", "1200", "12345678", "0123"}}, rows)
}
