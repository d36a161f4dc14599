//go:build !nojsonsimd

package reward

import "github.com/bytedance/sonic"

var fastJSON = sonic.ConfigStd

func decodeJSON(data []byte, v interface{}) error {
	return fastJSON.Unmarshal(data, v)
}
