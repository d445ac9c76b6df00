package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/crewplan/internal/solverproc"
)

func TestRealMainSolves(t *testing.T) {
	stdin := strings.NewReader(`{
		"operations": [{"id":"a","name":"A","duration":5,"workers_needed":1}],
		"dependencies": [],
		"workers": [{"name":"w","operations":["A"]}]
	}`)
	var stdout, stderr bytes.Buffer

	code := realMain(stdin, &stdout, &stderr, []string{"--budget", "5s"})
	require.Equal(t, 0, code)

	var resp solverproc.Response
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	require.True(t, resp.OK)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 5, resp.Result.Makespan)
}

func TestRealMainMalformedRequest(t *testing.T) {
	var stdout, stderr bytes.Buffer

	// A bad request is an answered error, not a crash: the host must be able
	// to tell it apart from a dead worker.
	code := realMain(strings.NewReader("not json"), &stdout, &stderr, nil)
	require.Equal(t, 0, code)

	var resp solverproc.Response
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "malformed request")
}

func TestRealMainBadFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := realMain(strings.NewReader(""), &stdout, &stderr, []string{"--budget", "potato"})
	assert.Equal(t, 2, code)
	assert.Empty(t, stdout.String())
}
