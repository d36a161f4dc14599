//go:build nojsonsimd

package reward

import stdjson "encoding/json"

func decodeJSON(data []byte, v interface{}) error {
	return stdjson.Unmarshal(data, v)
}
