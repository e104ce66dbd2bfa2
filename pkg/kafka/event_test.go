package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadedPayload struct {
	Reference string `json:"reference"`
	Folder    string `json:"folder"`
}

func TestNewEvent_PopulatesEnvelope(t *testing.T) {
	e, err := NewEvent("media.uploaded", "timeline/1-a-x.jpg", "media", "baoandkai", uploadedPayload{
		Reference: "http://localhost:9000/baoandkai/timeline/1-a-x.jpg",
		Folder:    "timeline",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, e.EventID)
	assert.Equal(t, "media.uploaded", e.EventType)
	assert.Equal(t, "timeline/1-a-x.jpg", e.AggregateID)
	assert.Equal(t, "media", e.AggregateType)
	assert.Equal(t, 1, e.Version)
	assert.Equal(t, "baoandkai", e.Source)
	assert.False(t, e.Timestamp.IsZero())
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	e, err := NewEvent("timeline.created", "42", "timeline_event", "baoandkai", map[string]any{"id": 42})
	require.NoError(t, err)
	e.WithCorrelationID("corr-9").WithMetadata("actor", "admin")

	data, err := e.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, decoded.EventID)
	assert.Equal(t, "corr-9", decoded.CorrelationID)
	assert.Equal(t, "admin", decoded.Metadata["actor"])
}

func TestEvent_UnmarshalData(t *testing.T) {
	e, err := NewEvent("media.uploaded", "k", "media", "baoandkai", uploadedPayload{Reference: "http://x/k", Folder: "albums"})
	require.NoError(t, err)

	var p uploadedPayload
	require.NoError(t, e.UnmarshalData(&p))
	assert.Equal(t, "albums", p.Folder)
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("x", "1", "y", "z", make(chan int))
	assert.Error(t, err)
}
