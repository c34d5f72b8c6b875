package menu

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cloud-kitchen/db"
)

const sampleMenu = `[
	{"id": 1, "name": "Truffle Risotto", "price": "28.50", "category": "mains", "imageUrl": "risotto.jpg"},
	{"id": 3, "name": "Lava Cake", "description": "warm", "price": 15, "category": "desserts", "extra": {"ignored": true}}
]`

func TestLoad(t *testing.T) {
	items, err := Load(strings.NewReader(sampleMenu))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, 1, items[0].ID)
	assert.Equal(t, "Truffle Risotto", items[0].Name)
	assert.True(t, decimal.RequireFromString("28.50").Equal(items[0].Price))
	assert.Equal(t, CategoryMains, items[0].Category)
	assert.Equal(t, "risotto.jpg", items[0].ImageURL)

	assert.True(t, decimal.NewFromInt(15).Equal(items[1].Price))
	assert.Equal(t, "warm", items[1].Description)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "not an array", input: `{"id": 1}`, wantErr: "decode menu"},
		{name: "empty input", input: ``, wantErr: "decode menu"},
		{name: "bad price", input: `[{"id": 1, "name": "x", "price": "abc", "category": "mains"}]`, wantErr: "item 0"},
		{name: "zero id", input: `[{"id": 0, "name": "x", "price": "1", "category": "mains"}]`, wantErr: "id must be positive"},
		{name: "missing name", input: `[{"id": 2, "price": "1", "category": "mains"}]`, wantErr: "name is required"},
		{name: "negative price", input: `[{"id": 2, "name": "x", "price": "-1", "category": "mains"}]`, wantErr: "must not be negative"},
		{name: "sub-cent price", input: `[{"id": 2, "name": "x", "price": "12.345", "category": "mains"}]`, wantErr: "more than 2 decimal places"},
		{name: "unknown category", input: `[{"id": 2, "name": "x", "price": "1", "category": "drinks"}]`, wantErr: "unknown category"},
		{name: "duplicate id", input: `[{"id": 2, "name": "x", "price": "1", "category": "mains"}, {"id": 2, "name": "y", "price": "1", "category": "mains"}]`, wantErr: "duplicate id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_TrailingZerosBeyondCents(t *testing.T) {
	items, err := Load(strings.NewReader(`[{"id": 1, "name": "Truffle Risotto", "price": "28.500", "category": "mains"}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, decimal.RequireFromString("28.50").Equal(items[0].Price))
}

func TestLoadFile_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	_, err := gz.Write([]byte(sampleMenu))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "menu.json.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	items, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestLoadFile_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleMenu), 0o600))

	items, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoad_EmbeddedSeed(t *testing.T) {
	items, err := Load(bytes.NewReader(db.MenuSeed))
	require.NoError(t, err)
	require.NotEmpty(t, items)

	byCategory := make(map[Category]int)
	for _, it := range items {
		byCategory[it.Category]++
	}
	for _, c := range Categories {
		assert.Positive(t, byCategory[c], "category %s has no dishes", c)
	}
}
