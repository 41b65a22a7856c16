package s3storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMirrorKey(t *testing.T) {
	assert.Equal(t, "srag/2024.csv", MirrorKey(2024))
}

func TestMirrorYear(t *testing.T) {
	assert.Equal(t, 2024, MirrorYear("srag/2024.csv"))
	assert.Equal(t, 0, MirrorYear("srag/readme.md"))
	assert.Equal(t, 0, MirrorYear("other/2024.csv"))
}
