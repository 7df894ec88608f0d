package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDataIDPrecedence(t *testing.T) {
	body, err := decodeJSONObject([]byte(`{
		"data": {"id": "body-data", "payment": {"id": "body-payment"}},
		"resource": "body-resource",
		"data.id": "body-flat"
	}`))
	require.NoError(t, err)

	tests := []struct {
		name  string
		query map[string]string
		body  map[string]any
		want  string
	}{
		{name: "query id first", query: map[string]string{"id": "q1", "data.id": "q2"}, body: body, want: "q1"},
		{name: "query data.id second", query: map[string]string{"data.id": "q2"}, body: body, want: "q2"},
		{name: "body data.id", query: nil, body: body, want: "body-data"},
		{name: "body data.payment.id", body: map[string]any{"data": map[string]any{"payment": map[string]any{"id": "p"}}, "resource": "r"}, want: "p"},
		{name: "body resource", body: map[string]any{"resource": "r", "data.id": "f"}, want: "r"},
		{name: "flattened key last", body: map[string]any{"data.id": "f"}, want: "f"},
		{name: "blank query ignored", query: map[string]string{"id": "  "}, body: map[string]any{"resource": "r"}, want: "r"},
		{name: "nothing", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDataID(tt.query, tt.body))
		})
	}
}

func TestExtractDataIDNumericID(t *testing.T) {
	body, err := decodeJSONObject([]byte(`{"data": {"id": 1234567890123}}`))
	require.NoError(t, err)
	assert.Equal(t, "1234567890123", ExtractDataID(nil, body))
}

func TestUintFrom(t *testing.T) {
	assert.Equal(t, uint(12), uintFrom("12"))
	assert.Equal(t, uint(12), uintFrom(float64(12)))
	assert.Equal(t, uint(0), uintFrom("abc"))
	assert.Equal(t, uint(0), uintFrom(nil))
}
