package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/version"
)

func TestEncode(t *testing.T) {
	start := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	data, err := Encode(BuildCompleted{
		BuildID: "b1",
		Outcome: "success",
		Start:   start,
		End:     start.Add(time.Second),
		Posts:   3,
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "b1", decoded["build_id"])
	assert.Equal(t, "2024-01-03T10:00:00Z", decoded["start"])
	assert.Equal(t, version.Version, decoded["version"])
	assert.InDelta(t, 3, decoded["posts"], 0)
	assert.NotContains(t, decoded, "error")
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	require.NoError(t, p.Publish(t.Context(), BuildCompleted{}))
	require.NoError(t, p.Close())
}

func TestNewNATSPublisher_Unreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}
