package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTimeChunks(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)

	chunks := GenerateTimeChunks(start, end, 1)
	require := assert.New(t)
	require.Len(chunks, 4)
	require.Equal(start, chunks[0].Start)
	require.Equal(start.Add(24*time.Hour), chunks[0].End)
	require.Equal(end, chunks[3].End)
	require.True(chunks[3].End.Sub(chunks[3].Start) < 24*time.Hour)
}

func TestGenerateTimeChunksEmptyRange(t *testing.T) {
	now := time.Now()
	assert.Nil(t, GenerateTimeChunks(now, now, 1))
	assert.Nil(t, GenerateTimeChunks(now, now.Add(-time.Hour), 1))
	assert.Nil(t, GenerateTimeChunks(now, now.Add(time.Hour), 0))
}
