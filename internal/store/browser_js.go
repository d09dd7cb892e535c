//go:build js && wasm
// +build js,wasm

package store

import (
	"fmt"
	"syscall/js"
)

// BrowserStore is a Cache over window.localStorage.
type BrowserStore struct {
	storage js.Value
}

// NewBrowserStore binds to window.localStorage.
func NewBrowserStore() (*BrowserStore, error) {
	storage := js.Global().Get("localStorage")
	if storage.IsUndefined() || storage.IsNull() {
		return nil, fmt.Errorf("store: localStorage not available")
	}
	return &BrowserStore{storage: storage}, nil
}

// Get implements Cache.
func (b *BrowserStore) Get(key string) (value string, ok bool, err error) {
	defer recoverJS(&err)
	v := b.storage.Call("getItem", key)
	if v.IsNull() || v.IsUndefined() {
		return "", false, nil
	}
	return v.String(), true, nil
}

// Set implements Cache. Quota errors surface as a returned error.
func (b *BrowserStore) Set(key, value string) (err error) {
	defer recoverJS(&err)
	b.storage.Call("setItem", key, value)
	return nil
}

// Delete implements Cache.
func (b *BrowserStore) Delete(key string) (err error) {
	defer recoverJS(&err)
	b.storage.Call("removeItem", key)
	return nil
}

// Close implements Cache.
func (b *BrowserStore) Close() error { return nil }

// recoverJS turns a thrown JS exception into an error.
func recoverJS(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("store: localStorage: %v", r)
	}
}

var _ Cache = (*BrowserStore)(nil)
