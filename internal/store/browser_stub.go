//go:build !js || !wasm
// +build !js !wasm

package store

import "errors"

// BrowserStore is unavailable outside the browser build.
type BrowserStore struct{}

// NewBrowserStore always fails on native builds.
func NewBrowserStore() (*BrowserStore, error) {
	return nil, errors.New("store: localStorage requires the js/wasm build")
}

func (*BrowserStore) Get(string) (string, bool, error) { return "", false, errors.ErrUnsupported }
func (*BrowserStore) Set(string, string) error         { return errors.ErrUnsupported }
func (*BrowserStore) Delete(string) error              { return errors.ErrUnsupported }
func (*BrowserStore) Close() error                     { return nil }
