package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterRendersRowsInHeaderOrder(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"teacher_id", "total_amount"},
		Rows: []map[string]string{
			{"total_amount": "36.00", "teacher_id": "t-1"},
		},
		Summary: []string{"Total: 36.00"},
	})
	require.NoError(t, err)
	require.Equal(t, "teacher_id,total_amount\nt-1,36.00\n", string(out))
}

func TestCSVExporterNeutralizesFormulaCells(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"teacher", "amount"},
		Rows: []map[string]string{
			{"teacher": "=HYPERLINK(\"x\")", "amount": "-1.50"},
			{"teacher": "@sum", "amount": "+3"},
			{"teacher": "-bad", "amount": "12.00"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "teacher,amount\n\"'=HYPERLINK(\"\"x\"\")\",-1.50\n'@sum,+3\n'-bad,12.00\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "empty")
	require.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(Dataset{
		Headers: []string{"a", "b", "c", "d", "e", "f", "g"},
		Rows:    []map[string]string{{"a": "1"}},
		Summary: []string{"Teachers: 1"},
	}, "payout report")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
