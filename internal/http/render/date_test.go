package render_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/http/render"
)

func TestDate(t *testing.T) {
	var body struct {
		Due  *render.Date `json:"due"`
		Paid *render.Date `json:"paid"`
		None *render.Date `json:"none"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"due":"2024-07-01","paid":"2024-06-10T15:04:05Z","none":null}`), &body))

	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), *body.Due.Ptr())
	assert.Equal(t, 15, body.Paid.Hour())
	assert.Nil(t, body.None.Ptr())

	assert.Error(t, json.Unmarshal([]byte(`{"due":"01/07/2024"}`), &body))

	raw, err := json.Marshal(render.Date{Time: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, `"2024-07-01"`, string(raw))
}
