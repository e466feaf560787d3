package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const companiesCSV = `company,country,segment,revenue_usd_m,ebitda_margin
Aramex,UAE,Express,1600,0.11
Naqel,KSA,Last-mile,420,0.09
SMSA,KSA,Express,510,
Agility,Kuwait,Contract logistics,1300,0.14
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "companies.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(companiesCSV))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "Aramex", rows[0]["company"])
	assert.Equal(t, int64(1600), rows[0]["revenue_usd_m"])
	assert.Equal(t, 0.11, rows[0]["ebitda_margin"])
	assert.Nil(t, rows[2]["ebitda_margin"])
}

func TestReadCSV_EmptyAndBOM(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = ReadCSV(strings.NewReader("\ufeffcompany\nAramex\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Aramex", rows[0]["company"])
}

func TestCSVSampler_Sample(t *testing.T) {
	s, err := LoadCSV(writeCSV(t, companiesCSV))
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, "csv", s.Name())
	assert.NoError(t, s.Ping(context.Background()))

	t.Run("subset without repeats", func(t *testing.T) {
		sample, err := s.Sample(context.Background(), 3)
		require.NoError(t, err)
		require.Len(t, sample, 3)

		seen := map[any]bool{}
		for _, row := range sample {
			assert.False(t, seen[row["company"]])
			seen[row["company"]] = true
		}
	})

	t.Run("larger than dataset", func(t *testing.T) {
		sample, err := s.Sample(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, sample, 4)
	})

	t.Run("zero", func(t *testing.T) {
		sample, err := s.Sample(context.Background(), 0)
		require.NoError(t, err)
		assert.Empty(t, sample)
	})
}

func TestLoadCSV_Missing(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestLoadCSV_Malformed(t *testing.T) {
	_, err := LoadCSV(writeCSV(t, "a,b\n\"unterminated,2\n"))
	assert.Error(t, err)
}
