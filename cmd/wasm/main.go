//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/tessera-archive/tessera/internal/config"
	"github.com/tessera-archive/tessera/internal/session"
	"github.com/tessera-archive/tessera/internal/store"
	"github.com/tessera-archive/tessera/pkg/archive"
	"github.com/tessera-archive/tessera/pkg/docstore"
	"github.com/tessera-archive/tessera/pkg/response"
	"github.com/tessera-archive/tessera/pkg/site"
)

// Version info
const Version = "2.0.0"

// Global state
var sess *session.Session

func main() {
	fmt.Println("[Tessera] WASM Ready v" + Version)

	js.Global().Set("Tessera", js.ValueOf(map[string]interface{}{
		"version": js.FuncOf(getVersion),
		"init":    js.FuncOf(jsInit),
		// Document
		"document":        js.FuncOf(jsDocument),
		"status":          js.FuncOf(jsStatus),
		"listing":         js.FuncOf(jsListing),
		"updateFields":    js.FuncOf(jsUpdateFields),
		"addEntity":       js.FuncOf(jsAddEntity),
		"updateEntity":    js.FuncOf(jsUpdateEntity),
		"deleteEntity":    js.FuncOf(jsDeleteEntity),
		"markMessageRead": js.FuncOf(jsMarkMessageRead),
		// Sync
		"pull":        js.FuncOf(jsPull),
		"push":        js.FuncOf(jsPush),
		"uploadAsset": js.FuncOf(jsUploadAsset),
		// Credential
		"setCredential":   js.FuncOf(jsSetCredential),
		"clearCredential": js.FuncOf(jsClearCredential),
		// Views
		"archive": js.FuncOf(jsArchive),
		"enhance": js.FuncOf(jsEnhance),
		// Cache Export/Import (OPFS sync) and history
		"cacheExport": js.FuncOf(jsCacheExport),
		"cacheImport": js.FuncOf(jsCacheImport),
		"history":     js.FuncOf(jsHistory),
		"restore":     js.FuncOf(jsRestore),
	}))

	// Keep the Go runtime alive
	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// =============================================================================
// Result helpers
// =============================================================================

// Helper: Create error result
func errorResult(msg string) interface{} {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// failure reports a store error together with its class.
func failure(op string, err error) interface{} {
	result := map[string]interface{}{
		"error": fmt.Sprintf("%s: %v", op, err),
		"kind":  docstore.Kind(err),
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// Helper: Create success result
func successResult(msg string) interface{} {
	result := map[string]interface{}{
		"success": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

func jsonResult(v interface{}) interface{} {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return errorResult("encode failed: " + err.Error())
	}
	return string(jsonBytes)
}

// makePromise creates a JS Promise and returns it along with resolve/reject functions.
func makePromise() (promise js.Value, resolve js.Value, reject js.Value) {
	var resolveFn, rejectFn js.Value
	handler := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolveFn = args[0]
		rejectFn = args[1]
		return nil
	})
	defer handler.Release()

	promise = js.Global().Get("Promise").New(handler)
	return promise, resolveFn, rejectFn
}

// rejectWith rejects with an Error whose kind property carries the store
// error class.
func rejectWith(reject js.Value, op string, err error) {
	jsErr := js.Global().Get("Error").New(fmt.Sprintf("%s: %v", op, err))
	jsErr.Set("kind", docstore.Kind(err))
	reject.Invoke(jsErr)
}

// async runs fn off the event loop and settles a Promise with its JSON result.
func async(op string, fn func(ctx context.Context) (interface{}, error)) interface{} {
	promise, resolve, reject := makePromise()

	go func() {
		if sess == nil {
			reject.Invoke(js.Global().Get("Error").New(op + ": not initialized (call init first)"))
			return
		}
		result, err := fn(context.Background())
		if err != nil {
			rejectWith(reject, op, err)
			return
		}
		jsonBytes, _ := json.Marshal(result)
		resolve.Invoke(string(jsonBytes))
	}()

	return promise
}

func optionalString(args []js.Value, i int) string {
	if len(args) <= i || args[i].IsUndefined() || args[i].IsNull() {
		return ""
	}
	return args[i].String()
}

func decodeObject(raw string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return fields, nil
}

// =============================================================================
// Init
// =============================================================================

// jsInit opens the session.
// Args: [configJSON string (optional)]
// Returns: Promise<JSON> {source, status}
func jsInit(this js.Value, args []js.Value) interface{} {
	raw := optionalString(args, 0)
	promise, resolve, reject := makePromise()

	go func() {
		cfg := &config.Config{}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), cfg); err != nil {
				reject.Invoke(js.Global().Get("Error").New("init: invalid config: " + err.Error()))
				return
			}
		}
		if cfg.Cache.Driver == "" {
			cfg.Cache.Driver = config.CacheBrowser
		}

		s, err := session.Open(context.Background(), cfg)
		if err != nil {
			rejectWith(reject, "init", err)
			return
		}
		if sess != nil {
			sess.Close()
		}
		sess = s

		fmt.Printf("[Tessera] ✅ Session ready (source=%s)\n", s.Source)
		jsonBytes, _ := json.Marshal(map[string]interface{}{
			"source": s.Source,
			"status": s.Store.Status(),
		})
		resolve.Invoke(string(jsonBytes))
	}()

	return promise
}

// =============================================================================
// Document API
// =============================================================================

// jsDocument returns the full document.
func jsDocument(this js.Value, args []js.Value) interface{} {
	if sess == nil {
		return errorResult("store not initialized")
	}
	return jsonResult(sess.Store.Document())
}

// jsStatus returns the sync status.
func jsStatus(this js.Value, args []js.Value) interface{} {
	if sess == nil {
		return errorResult("store not initialized")
	}
	return jsonResult(sess.Store.Status())
}

// jsListing returns the collections without bodies.
func jsListing(this js.Value, args []js.Value) interface{} {
	if sess == nil {
		return errorResult("store not initialized")
	}
	data, err := response.MarshalListing(sess.Store.Document())
	if err != nil {
		return errorResult("listing failed: " + err.Error())
	}
	return string(data)
}

// jsUpdateFields merges top-level fields into the document.
// Args: [fieldsJSON string]
func jsUpdateFields(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("updateFields requires 1 arg: fieldsJSON")
	}
	if sess == nil {
		return errorResult("store not initialized")
	}

	fields, err := decodeObject(args[0].String())
	if err != nil {
		return errorResult("updateFields: " + err.Error())
	}
	if err := sess.Store.UpdateFields(fields); err != nil {
		return failure("updateFields", err)
	}
	return successResult("fields updated")
}

// jsAddEntity inserts a post, announcement or message at the head of its
// collection.
// Args: [collection string, entityJSON string]
// Returns: JSON of the stored entity
func jsAddEntity(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("addEntity requires 2 args: collection, entityJSON")
	}
	if sess == nil {
		return errorResult("store not initialized")
	}

	c, err := site.ParseCollection(args[0].String())
	if err != nil {
		return errorResult("addEntity: " + err.Error())
	}
	data, err := decodeObject(args[1].String())
	if err != nil {
		return errorResult("addEntity: " + err.Error())
	}

	entity, err := sess.Store.AddEntity(c, data)
	if err != nil {
		return failure("addEntity", err)
	}
	return jsonResult(entity)
}

// jsUpdateEntity patches an entity by id.
// Args: [collection string, id string, patchJSON string]
func jsUpdateEntity(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("updateEntity requires 3 args: collection, id, patchJSON")
	}
	if sess == nil {
		return errorResult("store not initialized")
	}

	c, err := site.ParseCollection(args[0].String())
	if err != nil {
		return errorResult("updateEntity: " + err.Error())
	}
	patch, err := decodeObject(args[2].String())
	if err != nil {
		return errorResult("updateEntity: " + err.Error())
	}

	entity, err := sess.Store.UpdateEntity(c, args[1].String(), patch)
	if err != nil {
		return failure("updateEntity", err)
	}
	return jsonResult(entity)
}

// jsDeleteEntity removes an entity by id. Deleting a missing id is a no-op.
// Args: [collection string, id string]
func jsDeleteEntity(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("deleteEntity requires 2 args: collection, id")
	}
	if sess == nil {
		return errorResult("store not initialized")
	}

	c, err := site.ParseCollection(args[0].String())
	if err != nil {
		return errorResult("deleteEntity: " + err.Error())
	}
	removed := sess.Store.DeleteEntity(c, args[1].String())
	return jsonResult(map[string]interface{}{"removed": removed})
}

// jsMarkMessageRead flags a message as read.
// Args: [id string]
func jsMarkMessageRead(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("markMessageRead requires 1 arg: id")
	}
	if sess == nil {
		return errorResult("store not initialized")
	}
	changed := sess.Store.MarkMessageRead(args[0].String())
	return jsonResult(map[string]interface{}{"changed": changed})
}

// =============================================================================
// Sync API
// =============================================================================

// jsPull fetches and merges the remote document.
// Args: [force bool (optional)]
// Returns: Promise<JSON> PullResult
func jsPull(this js.Value, args []js.Value) interface{} {
	force := len(args) > 0 && args[0].Truthy()
	return async("pull", func(ctx context.Context) (interface{}, error) {
		return sess.Store.Pull(ctx, force)
	})
}

// jsPush publishes the document.
// Returns: Promise<JSON> PushResult
func jsPush(this js.Value, args []js.Value) interface{} {
	return async("push", func(ctx context.Context) (interface{}, error) {
		return sess.Store.Push(ctx)
	})
}

// jsUploadAsset uploads binary data to the image folder.
// Args: [data Uint8Array, fileName string]
// Returns: Promise<JSON> {path, url}
func jsUploadAsset(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("uploadAsset requires 2 args: data (Uint8Array), fileName")
	}

	jsArray := args[0]
	data := make([]byte, jsArray.Get("length").Int())
	js.CopyBytesToGo(data, jsArray)
	name := args[1].String()

	return async("uploadAsset", func(ctx context.Context) (interface{}, error) {
		return sess.Store.UploadAsset(ctx, data, name)
	})
}

// =============================================================================
// Credential API
// =============================================================================

// jsSetCredential stores the write token.
// Args: [token string]
func jsSetCredential(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("setCredential requires 1 arg: token")
	}
	if sess == nil {
		return errorResult("store not initialized")
	}
	if err := sess.Store.SetCredential(args[0].String()); err != nil {
		return failure("setCredential", err)
	}
	return successResult("credential set")
}

// jsClearCredential forgets the write token.
func jsClearCredential(this js.Value, args []js.Value) interface{} {
	if sess == nil {
		return errorResult("store not initialized")
	}
	sess.Store.ClearCredential()
	return successResult("credential cleared")
}

// =============================================================================
// Views
// =============================================================================

// jsArchive returns the public archive view.
// Args: [queryJSON string (optional)] {category, search, limit}
func jsArchive(this js.Value, args []js.Value) interface{} {
	if sess == nil {
		return errorResult("store not initialized")
	}

	var q archive.Query
	if raw := optionalString(args, 0); raw != "" {
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return errorResult("archive: invalid query: " + err.Error())
		}
	}
	data, err := response.MarshalArchive(sess.Store.Document(), q)
	if err != nil {
		return errorResult("archive failed: " + err.Error())
	}
	return string(data)
}

// jsEnhance rewrites a draft. The document is not changed.
// Args: [title string, content string]
// Returns: Promise<JSON> {text}
func jsEnhance(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("enhance requires 2 args: title, content")
	}
	title, content := args[0].String(), args[1].String()

	return async("enhance", func(ctx context.Context) (interface{}, error) {
		text, err := sess.Insight.Enhance(ctx, title, content)
		if err != nil {
			return nil, err
		}
		return map[string]string{"text": text}, nil
	})
}

// =============================================================================
// Cache Export/Import (OPFS Sync)
// =============================================================================

// jsCacheExport serializes the cache to a Uint8Array.
// Returns: Uint8Array (for OPFS persistence)
func jsCacheExport(this js.Value, args []js.Value) interface{} {
	if sess == nil {
		return errorResult("store not initialized")
	}
	snap, ok := sess.Cache.(store.Snapshotter)
	if !ok {
		return errorResult("cache driver does not support export")
	}

	data, err := snap.Export()
	if err != nil {
		return errorResult("export failed: " + err.Error())
	}

	// Create a Uint8Array in JS and copy bytes over
	jsArray := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(jsArray, data)

	fmt.Printf("[Tessera] ✅ Exported %d bytes\n", len(data))
	return jsArray
}

// jsCacheImport restores the cache from a Uint8Array. The in-memory
// document is untouched until the next init.
// Args: [data Uint8Array]
func jsCacheImport(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("cacheImport requires 1 arg: data (Uint8Array)")
	}
	if sess == nil {
		return errorResult("store not initialized")
	}
	snap, ok := sess.Cache.(store.Snapshotter)
	if !ok {
		return errorResult("cache driver does not support import")
	}

	jsArray := args[0]
	length := jsArray.Get("length").Int()
	data := make([]byte, length)
	js.CopyBytesToGo(data, jsArray)

	if err := snap.Import(data); err != nil {
		return errorResult("import failed: " + err.Error())
	}

	fmt.Printf("[Tessera] ✅ Imported %d bytes\n", length)
	return successResult(fmt.Sprintf("imported %d bytes", length))
}

// jsHistory lists cached document versions, newest first.
func jsHistory(this js.Value, args []js.Value) interface{} {
	if sess == nil {
		return errorResult("store not initialized")
	}
	entries, err := sess.Store.History()
	if err != nil {
		return failure("history", err)
	}
	return jsonResult(entries)
}

// jsRestore makes a cached version current again. The store becomes dirty.
// Args: [version number]
func jsRestore(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("restore requires 1 arg: version")
	}
	if sess == nil {
		return errorResult("store not initialized")
	}
	doc, err := sess.Store.Restore(args[0].Int())
	if err != nil {
		return failure("restore", err)
	}
	return jsonResult(doc)
}
