//go:build js && wasm
// +build js,wasm

package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall/js"
)

// fetchDoer sends requests through the browser's fetch API with the HTTP
// cache disabled.
type fetchDoer struct{}

// NewDoer returns the browser fetch adapter. cfg is ignored.
func NewDoer(_ Config) Doer {
	return fetchDoer{}
}

type fetchResult struct {
	status int
	body   string
	err    error
}

// Do implements Doer.
func (fetchDoer) Do(req *http.Request) (*http.Response, error) {
	fetch := js.Global().Get("fetch")
	if fetch.IsUndefined() {
		return nil, fmt.Errorf("httpclient: fetch not available")
	}

	headers := js.Global().Get("Object").New()
	for name, values := range req.Header {
		headers.Set(name, strings.Join(values, ", "))
	}

	options := js.Global().Get("Object").New()
	options.Set("method", req.Method)
	options.Set("headers", headers)
	options.Set("cache", "no-store")
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: read request body: %w", err)
		}
		options.Set("body", string(body))
	}

	promise := fetch.Invoke(req.URL.String(), options)

	// Buffered so late callbacks never block after ctx cancellation.
	resultCh := make(chan fetchResult, 1)

	then := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		response := args[0]
		status := response.Get("status").Int()

		var textThen, textCatch js.Func
		releaseText := func() {
			textThen.Release()
			textCatch.Release()
		}
		textThen = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			resultCh <- fetchResult{status: status, body: args[0].String()}
			releaseText()
			return nil
		})
		textCatch = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			resultCh <- fetchResult{err: fmt.Errorf("httpclient: read response body: %s", jsErrorMessage(args[0]))}
			releaseText()
			return nil
		})
		response.Call("text").Call("then", textThen, textCatch)
		return nil
	})

	catch := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resultCh <- fetchResult{err: fmt.Errorf("%s", jsErrorMessage(args[0]))}
		return nil
	})
	release := func() {
		then.Release()
		catch.Release()
	}

	promise.Call("then", then).Call("catch", catch)

	var result fetchResult
	select {
	case result = <-resultCh:
		release()
	case <-req.Context().Done():
		// The promise still settles later; release once it does.
		go func() {
			<-resultCh
			release()
		}()
		return nil, req.Context().Err()
	}
	if result.err != nil {
		return nil, result.err
	}

	return &http.Response{
		Status:     fmt.Sprintf("%d %s", result.status, http.StatusText(result.status)),
		StatusCode: result.status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(result.body)),
		Request:    req,
	}, nil
}

func jsErrorMessage(v js.Value) string {
	if v.Type() == js.TypeObject {
		if msg := v.Get("message"); msg.Type() == js.TypeString {
			return msg.String()
		}
	}
	return v.String()
}
