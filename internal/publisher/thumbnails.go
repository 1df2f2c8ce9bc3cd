package publisher

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
)

// thumbnailKeys returns the thumbnail ids of a thumbnails response in
// property order: canonical array-index keys ("0", "12") first in ascending
// numeric order, then the remaining keys in document order. Arrays (how the
// platform encodes an empty or index-keyed set) yield their positions.
func thumbnailKeys(r io.Reader) ([]string, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		if tok == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected thumbnails payload %v", tok)
	}

	var keys []string
	switch delim {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected thumbnail key %v", keyTok)
			}
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			if !slices.Contains(keys, key) {
				keys = append(keys, key)
			}
		}
		slices.SortStableFunc(keys, compareKeys)
	case '[':
		for i := 0; dec.More(); i++ {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			keys = append(keys, strconv.Itoa(i))
		}
	default:
		return nil, fmt.Errorf("unexpected thumbnails delimiter %v", delim)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return keys, nil
}

// compareKeys orders index keys before other keys and index keys by value.
func compareKeys(a, b string) int {
	ai, aok := indexKey(a)
	bi, bok := indexKey(b)
	switch {
	case aok && bok:
		return cmp.Compare(ai, bi)
	case aok:
		return -1
	case bok:
		return 1
	}
	return 0
}

// indexKey reports whether key is the canonical decimal form of an array
// index (0 to 2^32-2, no sign or leading zeros).
func indexKey(key string) (uint64, bool) {
	v, err := strconv.ParseUint(key, 10, 32)
	if err != nil || v == math.MaxUint32 || strconv.FormatUint(v, 10) != key {
		return 0, false
	}
	return v, true
}
