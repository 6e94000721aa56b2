package repository

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestBuildProductUpdateDerivesAvailabilityFromStock(t *testing.T) {
	query, args, err := buildProductUpdate(silentLogger(), 7, map[string]interface{}{"stock": 5})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE products SET is_available = $1, stock = $2 WHERE id = $3", query)
	assert.Equal(t, []interface{}{true, 5, 7}, args)

	query, args, err = buildProductUpdate(silentLogger(), 7, map[string]interface{}{"stock": 0})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE products SET is_available = $1, stock = $2 WHERE id = $3", query)
	assert.Equal(t, []interface{}{false, 0, 7}, args)
}

func TestBuildProductUpdateExplicitAvailabilityWithStock(t *testing.T) {
	query, args, err := buildProductUpdate(silentLogger(), 7, map[string]interface{}{
		"stock":        5,
		"is_available": false,
	})
	require.NoError(t, err)

	// Each column is assigned exactly once; the explicit value wins over the
	// one derived from stock.
	assert.Equal(t, 1, strings.Count(query, "is_available ="))
	assert.Equal(t, "UPDATE products SET is_available = $1, stock = $2 WHERE id = $3", query)
	assert.Equal(t, []interface{}{false, 5, 7}, args)
}

func TestBuildProductUpdateMixedFields(t *testing.T) {
	query, args, err := buildProductUpdate(silentLogger(), 3, map[string]interface{}{
		"name":  "Kettle",
		"stock": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE products SET name = $1, is_available = $2, stock = $3 WHERE id = $4", query)
	assert.Equal(t, []interface{}{"Kettle", true, 2, 3}, args)
}

func TestBuildProductUpdateRejectsBadStockType(t *testing.T) {
	_, _, err := buildProductUpdate(silentLogger(), 3, map[string]interface{}{"stock": "five"})
	assert.Error(t, err)
}

func TestBuildProductUpdateSkipsUnknownFields(t *testing.T) {
	query, args, err := buildProductUpdate(silentLogger(), 3, map[string]interface{}{"color": "red"})
	require.NoError(t, err)
	assert.Empty(t, query)
	assert.Nil(t, args)
}
