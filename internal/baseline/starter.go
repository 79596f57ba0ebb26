package baseline

import _ "embed"

//go:embed starter.json
var starter []byte

// Starter returns a copy of the built-in starter document.
func Starter() []byte {
	out := make([]byte, len(starter))
	copy(out, starter)
	return out
}
