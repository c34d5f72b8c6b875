package postgres

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cloud-kitchen/internal/domain/order"
)

func TestLinesCodec(t *testing.T) {
	lines := []order.Line{
		{
			ItemID:    2,
			Name:      `Seared "Scallops"`,
			UnitPrice: decimal.RequireFromString("34.00"),
			Quantity:  2,
			LineTotal: decimal.RequireFromString("68.00"),
		},
	}

	got, err := decodeLines(encodeLines(lines))
	require.NoError(t, err)

	if diff := cmp.Diff(lines, got, cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLines_Invalid(t *testing.T) {
	for _, data := range []string{
		`{}`,
		`[{"unitPrice":12}]`,
		`[{"unitPrice":"twelve"}]`,
	} {
		_, err := decodeLines([]byte(data))
		require.Error(t, err, data)
	}
}
