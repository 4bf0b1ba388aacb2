package infra

import (
	"math"
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentsRoundtrip(t *testing.T) {
	values := []int64{0, 1, -1, 5000, -5000, 999_999_999_999, math.MaxInt64, math.MinInt64}
	for _, v := range values {
		n := CentsToNumeric(v)
		result, err := NumericToCents(n)
		require.NoError(t, err, "value: %d", v)
		assert.Equal(t, v, result, "value: %d", v)
	}
}

func TestNumericToCents(t *testing.T) {
	t.Run("null is an error", func(t *testing.T) {
		_, err := NumericToCents(pgtype.Numeric{Valid: false})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NULL")
	})

	t.Run("positive exponent is scaled", func(t *testing.T) {
		// 50 * 10^2 = 5000 cents
		n := pgtype.Numeric{Int: big.NewInt(50), Exp: 2, Valid: true}
		v, err := NumericToCents(n)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), v)
	})

	t.Run("negative exponent truncates", func(t *testing.T) {
		// 500.99 -> 500
		n := pgtype.Numeric{Int: big.NewInt(50099), Exp: -2, Valid: true}
		v, err := NumericToCents(n)
		require.NoError(t, err)
		assert.Equal(t, int64(500), v)
	})

	t.Run("overflow is an error", func(t *testing.T) {
		over := new(big.Int).SetInt64(math.MaxInt64)
		over.Add(over, big.NewInt(1))
		_, err := NumericToCents(pgtype.Numeric{Int: over, Exp: 0, Valid: true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "overflows")
	})
}
