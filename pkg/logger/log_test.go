package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestZerologSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewZerologSink(zerolog.New(&buf))

	sink.LogError("bad bundle")
	sink.LogWarning("odd bundle")
	sink.LogInfo("fine bundle")

	got := buf.String()
	assert.Contains(t, got, `{"level":"error","component":"bundles","message":"bad bundle"}`)
	assert.Contains(t, got, `{"level":"warn","component":"bundles","message":"odd bundle"}`)
	assert.Contains(t, got, `{"level":"info","component":"bundles","message":"fine bundle"}`)
}

func TestNop(t *testing.T) {
	Nop().LogError("ignored")
}
