package tsdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLine(t *testing.T) {
	tests := []struct {
		name        string
		measurement string
		row         Row
		expected    string
		wantErr     bool
	}{
		{
			name:        "single numeric field no tags no timestamp",
			measurement: "cpu",
			row: Row{
				Fields: map[string]FieldValue{"usage": Float64Value(0.64)},
			},
			expected: "cpu usage=0.64",
		},
		{
			name:        "tags sorted and multiple fields sorted",
			measurement: "cpu",
			row: Row{
				Tags:      map[string]string{"zone": "us-east", "host": "server01"},
				Fields:    map[string]FieldValue{"usage": Float64Value(0.64), "idle": IntValue(12)},
				Timestamp: 1609459200000000000,
			},
			expected: "cpu,host=server01,zone=us-east idle=12i,usage=0.64 1609459200000000000",
		},
		{
			name:        "string field is quoted and escaped",
			measurement: "events",
			row: Row{
				Fields: map[string]FieldValue{"message": StringValue(`say "hi"`)},
			},
			expected: `events message="say \"hi\""`,
		},
		{
			name:        "boolean field",
			measurement: "alerts",
			row: Row{
				Fields: map[string]FieldValue{"firing": BoolValue(true)},
			},
			expected: "alerts firing=true",
		},
		{
			name:        "measurement needing quotes",
			measurement: "my measurement",
			row: Row{
				Fields: map[string]FieldValue{"v": IntValue(1)},
			},
			expected: `"my measurement" v=1i`,
		},
		{
			name:        "no fields is an error",
			measurement: "cpu",
			row:         Row{Tags: map[string]string{"host": "a"}},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := EncodeLine(tt.measurement, tt.row)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, line)
		})
	}
}

func TestFieldKindTypeName(t *testing.T) {
	assert.Equal(t, "numeric", FieldFloat.TypeName())
	assert.Equal(t, "numeric", FieldInteger.TypeName())
	assert.Equal(t, "string", FieldString.TypeName())
	assert.Equal(t, "boolean", FieldBoolean.TypeName())
}

func TestEscapeIdentifier(t *testing.T) {
	assert.Equal(t, "plain_name", escapeIdentifier("plain_name"))
	assert.Equal(t, `"has space"`, escapeIdentifier("has space"))
	assert.Equal(t, `"has-dash"`, escapeIdentifier("has-dash"))
}
