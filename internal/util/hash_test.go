package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageIDStable(t *testing.T) {
	a := StorageID("trending_emotes/Kappa.webp")
	b := StorageID("trending_emotes/Kappa.webp")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "storage_"))
}

func TestStorageIDDistinguishesNames(t *testing.T) {
	assert.NotEqual(t, StorageID("emote_api/a.webp"), StorageID("emote_api/b.webp"))
}
