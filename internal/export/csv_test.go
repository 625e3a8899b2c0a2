package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsync "github.com/eshaffer321/itemize/internal/application/sync"
	"github.com/eshaffer321/itemize/internal/domain/matcher"
)

func sampleResult() *appsync.Result {
	items := []matcher.Item{
		{OrderID: "o1", Title: "Book", Price: 20},
		{OrderID: "o1", Title: "Pen, blue", Price: 1.5},
	}
	pair := matcher.MatchedPair{
		Ledger: matcher.LedgerTransaction{ID: "t1", Amount: -21.5, Date: "2024-01-12"},
		Charge: matcher.Charge{OrderID: "o1", Date: "2024-01-10", SignedAmount: -21.5, Items: items},
	}
	return &appsync.Result{
		RunID:     7,
		DryRun:    true,
		StartDate: time.Date(2023, 12, 23, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		Pairs:     []matcher.MatchedPair{pair},
		Annotations: []appsync.Annotation{{
			Pair:     pair,
			Provider: "amazon",
			Note:     "$20.00 - o1 - Book\n\n$1.50 - o1 - Pen, blue",
			Outcome:  appsync.AnnotationDryRun,
		}},
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}

	err := w.Write(&buf, sampleResult())
	require.NoError(t, err)

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 5)
	assert.Equal(t, []string{"# Run", "7"}, records[0])
	assert.Equal(t, []string{"# Range", "2023-12-23 to 2025-01-08"}, records[1])
	assert.Equal(t, []string{"# Dry Run", "true"}, records[2])
	assert.Equal(t, "Transaction ID", records[3][0])
	assert.Equal(t, []string{
		"t1", "2024-01-12", "-21.50", "o1", "2024-01-10", "amazon", "2",
		"dry_run", "$20.00 - o1 - Book\n\n$1.50 - o1 - Pen, blue",
	}, records[4])
}

func TestCSVWriter_Write_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{}

	require.NoError(t, w.Write(&buf, sampleResult()))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 2)
	assert.Equal(t, "Transaction ID", records[0][0])
}

func TestCSVWriter_Write_PairsWithoutAnnotations(t *testing.T) {
	result := sampleResult()
	result.Annotations = nil

	var buf bytes.Buffer
	require.NoError(t, (&CSVWriter{}).Write(&buf, result))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 2)
	assert.Equal(t, "t1", records[1][0])
	assert.Equal(t, "", records[1][7])
}

func TestCSVWriter_Write_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CSVWriter{}).Write(&buf, &appsync.Result{}))

	records := readCSV(t, buf.Bytes())
	assert.Len(t, records, 1)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestCSVWriter_Write_PropagatesWriterErrors(t *testing.T) {
	t.Run("small report fails on flush", func(t *testing.T) {
		err := (&CSVWriter{IncludeHeader: true}).Write(failingWriter{}, sampleResult())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("large report fails on a row", func(t *testing.T) {
		result := sampleResult()
		long := result.Annotations[0]
		long.Note = string(bytes.Repeat([]byte("x"), 8192))
		result.Annotations = []appsync.Annotation{long}

		err := (&CSVWriter{IncludeHeader: true}).Write(failingWriter{}, result)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestMetadata(t *testing.T) {
	assert.Equal(t, [][]string{
		{"# Run", "7"},
		{"# Range", "2023-12-23 to 2025-01-08"},
		{"# Dry Run", "true"},
	}, metadata(sampleResult()))

	assert.Equal(t, [][]string{{"# Dry Run", "false"}}, metadata(&appsync.Result{}))
}

func TestCSVWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	err := (&CSVWriter{}).WriteToFile(path, sampleResult())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, data), 2)
}

func TestCSVWriter_WriteToFile_BadPath(t *testing.T) {
	err := (&CSVWriter{}).WriteToFile(filepath.Join(t.TempDir(), "missing", "report.csv"), sampleResult())
	assert.Error(t, err)
}
