package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "string form", in: `"2s"`, want: 2 * time.Second},
		{name: "nanosecond number", in: `1500000000`, want: 1500 * time.Millisecond},
		{name: "bad string", in: `"sometimes"`, wantErr: true},
		{name: "bad type", in: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)
		})
	}
}

func TestDurationMarshalRoundTrip(t *testing.T) {
	b, err := json.Marshal(Duration{3 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, `"3m0s"`, string(b))

	var d Duration
	require.NoError(t, json.Unmarshal(b, &d))
	assert.Equal(t, 3*time.Minute, d.Duration)
}
