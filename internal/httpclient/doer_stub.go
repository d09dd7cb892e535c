//go:build !js || !wasm
// +build !js !wasm

package httpclient

// NewDoer returns a pooled net/http client on native builds.
func NewDoer(cfg Config) Doer {
	return New(cfg)
}
