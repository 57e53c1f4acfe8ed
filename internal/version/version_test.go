package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	GitCommit = "abc1234"
	t.Cleanup(func() { GitCommit = "unknown" })

	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, "abc1234", info.Commit)
	assert.Equal(t, "unknown", info.BuildDate)
}
