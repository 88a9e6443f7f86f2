package ws

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load_profile/internal/pipeline"
)

func newTestBridge() (*Bridge, *Client) {
	hub := NewHub()
	client := &Client{hub: hub, send: make(chan []byte, 256)}
	hub.Register(client)
	bridge := NewBridge(hub)
	return bridge, client
}

func receiveEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	msg := <-c.send
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestBridge_ImplementsCallback(t *testing.T) {
	var _ pipeline.Callback = (*Bridge)(nil)
}

func TestBridge_OnProgress(t *testing.T) {
	bridge, client := newTestBridge()

	bridge.OnProgress(pipeline.Progress{
		RunID:     "run-1",
		ProfileID: "north",
		Stage:     pipeline.StageApplyConstraints,
		Percent:   85,
		Message:   "applying energy targets",
	})

	env := receiveEnvelope(t, client)
	assert.Equal(t, TypeProfileProgress, env.Type)

	var p ProgressPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "apply_constraints", p.Stage)
	assert.Equal(t, 85.0, p.Percent)
	assert.Equal(t, "applying energy targets", p.Message)
	assert.Zero(t, p.FiscalYear)
}

func TestBridge_OnResult(t *testing.T) {
	bridge, client := newTestBridge()

	bridge.OnResult(sampleResult())

	env := receiveEnvelope(t, client)
	assert.Equal(t, TypeProfileResult, env.Type)

	var p ResultPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "run-42", p.RunID)
	assert.True(t, p.TargetsMet)
	require.Len(t, p.Years, 2)
	assert.Equal(t, 8760, p.Years[1].Hours)
}

func TestBridge_OnError(t *testing.T) {
	bridge, client := newTestBridge()

	bridge.OnError("north", errors.New("no usable historical data"))

	env := receiveEnvelope(t, client)
	assert.Equal(t, TypeProfileError, env.Type)

	var p ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "north", p.ProfileID)
	assert.Equal(t, "no usable historical data", p.Message)
}
