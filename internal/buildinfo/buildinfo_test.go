package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })

	Version, Commit = "", ""
	info := Get()
	assert.Equal(t, "dev", info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Equal(t, "dev", info.String())

	Version, Commit = "v1.2.0", "abc1234def5678"
	assert.Equal(t, "v1.2.0 (abc1234)", Get().String())
}
