package exports

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type customer struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

type line struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type order struct {
	Number   string    `json:"number"`
	Customer *customer `json:"customer"`
	Lines    []line    `json:"lines"`
	Paid     bool      `json:"paid"`
	Note     *string   `json:"note"`
}

func TestFlattenNestedRecords(t *testing.T) {
	records := []order{
		{Number: "SO-1", Customer: &customer{Name: "Acme", Country: "DE"}, Lines: []line{{SKU: "A", Qty: 2}}, Paid: true},
		{Number: "SO-2", Lines: []line{{SKU: "B", Qty: 1}, {SKU: "C", Qty: 5}}},
	}

	table, err := Flatten(records)
	require.NoError(t, err)
	require.Equal(t, []string{
		"number", "customer.name", "customer.country", "lines.0.sku", "lines.0.qty", "paid", "note",
		"customer", "lines.1.sku", "lines.1.qty",
	}, table.Header)

	require.Len(t, table.Rows, 2)
	require.Equal(t, "Acme", table.Rows[0]["customer.name"])
	require.Equal(t, "2", table.Rows[0]["lines.0.qty"])
	require.Equal(t, "true", table.Rows[0]["paid"])
	require.Equal(t, "", table.Rows[0]["note"])
	require.Equal(t, "5", table.Rows[1]["lines.1.qty"])
	require.Equal(t, "", table.Rows[1]["customer"])
}

func TestFlattenAcceptsPointersAndMaps(t *testing.T) {
	records := &[]map[string]any{
		{"id": 1, "tags": []string{}},
	}
	table, err := Flatten(records)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"id", "tags"}, table.Header)
	require.Equal(t, "1", table.Rows[0]["id"])
}

func TestFlattenScalarsUseValueColumn(t *testing.T) {
	table, err := Flatten([]int{4, 5})
	require.NoError(t, err)
	require.Equal(t, []string{"value"}, table.Header)
	require.Equal(t, "5", table.Rows[1]["value"])
}

func TestFlattenRejectsNonSlices(t *testing.T) {
	_, err := Flatten(order{})
	require.Error(t, err)
}

func TestFlattenEmpty(t *testing.T) {
	table, err := Flatten([]order{})
	require.NoError(t, err)
	require.Empty(t, table.Header)
	require.Empty(t, table.Rows)
}
