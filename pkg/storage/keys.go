package storage

import (
	"strconv"
	"strings"
)

func championKey(prefix string, id uint32) string {
	return prefix + strconv.FormatUint(uint64(id), 10)
}

// parseChampionKey extracts the id from a key built by championKey.
func parseChampionKey(prefix, key string) (uint32, bool) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}
