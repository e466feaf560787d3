package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/Rrens/invest-agent/internal/domain"
)

// CSVSampler keeps the whole file in memory; it is loaded once at startup
type CSVSampler struct {
	path string
	rows []domain.DatasetRow
}

// LoadCSV reads a header-first CSV file
func LoadCSV(path string) (*CSVSampler, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	return &CSVSampler{path: path, rows: rows}, nil
}

// ReadCSV parses CSV records into rows keyed by the header line.
// Numeric cells become float64 or int64 so the JSON context keeps them numeric.
func ReadCSV(r io.Reader) ([]domain.DatasetRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []domain.DatasetRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(domain.DatasetRow, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = parseCell(record[i])
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func (s *CSVSampler) Name() string {
	return "csv"
}

// Len returns the number of loaded rows
func (s *CSVSampler) Len() int {
	return len(s.rows)
}

func (s *CSVSampler) Sample(_ context.Context, n int) ([]domain.DatasetRow, error) {
	if n > len(s.rows) {
		n = len(s.rows)
	}
	if n <= 0 {
		return nil, nil
	}

	sample := make([]domain.DatasetRow, 0, n)
	for _, idx := range rand.Perm(len(s.rows))[:n] {
		sample = append(sample, s.rows[idx])
	}
	return sample, nil
}

func (s *CSVSampler) Ping(_ context.Context) error {
	if s.rows == nil {
		return fmt.Errorf("dataset %s has no rows", s.path)
	}
	return nil
}

func (s *CSVSampler) Close() error {
	return nil
}
