package util

import (
	"fmt"
	"hash/fnv"
)

// StorageID derives a stable pseudo-identifier for an asset that exists only
// in blob storage, where the original upstream ID is no longer known.
func StorageID(blobName string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(blobName))
	return fmt.Sprintf("storage_%d", h.Sum32()%10_000_000)
}
