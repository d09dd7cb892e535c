// Package memgateway is an in-memory gateway.Gateway with git-style
// revisions. It backs tests and offline sessions.
package memgateway

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"

	"github.com/tessera-archive/tessera/pkg/gateway"
)

// Op names a gateway operation for fault injection and call counting.
type Op string

const (
	OpReadFile  Op = "readFile"
	OpWriteFile Op = "writeFile"
	OpReadRaw   Op = "readRaw"
)

type entry struct {
	content  []byte
	revision string
	message  string
}

// Gateway stores files in memory.
type Gateway struct {
	mu     sync.Mutex
	files  map[string]*entry
	faults map[Op]error
	calls  map[Op]int

	// BeforeWrite, when set, runs at the start of every WriteFile without
	// the lock held. Tests use it to land a concurrent external write
	// between a revision read and the conditional write.
	BeforeWrite func(loc gateway.Location)

	// Authorize, when set, gates ReadFile and WriteFile.
	Authorize func() error
}

// New creates an empty gateway.
func New() *Gateway {
	return &Gateway{
		files:  make(map[string]*entry),
		faults: make(map[Op]error),
		calls:  make(map[Op]int),
	}
}

func key(loc gateway.Location) string {
	return loc.Owner + "/" + loc.Repo + "@" + loc.Branch + ":" + loc.Path
}

// BlobSHA computes the git blob id of content, the revision format the
// GitHub contents API reports.
func BlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Put writes content unconditionally, simulating another client.
func (g *Gateway) Put(loc gateway.Location, content []byte) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	rev := BlobSHA(content)
	g.files[key(loc)] = &entry{content: slices.Clone(content), revision: rev, message: "external write"}
	return rev
}

// Get returns the stored content and revision.
func (g *Gateway) Get(loc gateway.Location) ([]byte, string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.files[key(loc)]
	if !ok {
		return nil, "", false
	}
	return slices.Clone(e.content), e.revision, true
}

// LastMessage returns the commit message of the latest write to loc.
func (g *Gateway) LastMessage(loc gateway.Location) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.files[key(loc)]; ok {
		return e.message
	}
	return ""
}

// Fail makes the next call of op return err.
func (g *Gateway) Fail(op Op, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.faults[op] = err
}

// Calls returns how many times op was invoked.
func (g *Gateway) Calls(op Op) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *Gateway) enter(op Op) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[op]++
	if err, ok := g.faults[op]; ok {
		delete(g.faults, op)
		return err
	}
	return nil
}

func (g *Gateway) authorize() error {
	if g.Authorize == nil {
		return nil
	}
	return g.Authorize()
}

// ReadFile implements gateway.Gateway.
func (g *Gateway) ReadFile(ctx context.Context, loc gateway.Location) (*gateway.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.enter(OpReadFile); err != nil {
		return nil, err
	}
	if err := g.authorize(); err != nil {
		return nil, err
	}

	content, rev, ok := g.Get(loc)
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return &gateway.File{Content: content, Revision: rev}, nil
}

// WriteFile implements gateway.Gateway.
func (g *Gateway) WriteFile(ctx context.Context, loc gateway.Location, content []byte, opts gateway.WriteOptions) (*gateway.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.enter(OpWriteFile); err != nil {
		return nil, err
	}
	if err := g.authorize(); err != nil {
		return nil, err
	}
	if g.BeforeWrite != nil {
		g.BeforeWrite(loc)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	current := ""
	if e, ok := g.files[key(loc)]; ok {
		current = e.revision
	}
	if current != opts.ExpectedRevision {
		return nil, &gateway.ConflictError{
			Location:         loc,
			ExpectedRevision: opts.ExpectedRevision,
			CurrentRevision:  current,
		}
	}

	rev := BlobSHA(content)
	g.files[key(loc)] = &entry{content: slices.Clone(content), revision: rev, message: opts.Message}
	return &gateway.WriteResult{Revision: rev}, nil
}

// ReadRaw implements gateway.Gateway.
func (g *Gateway) ReadRaw(ctx context.Context, loc gateway.Location) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.enter(OpReadRaw); err != nil {
		return nil, err
	}
	content, _, ok := g.Get(loc)
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return content, nil
}

// RawURL implements gateway.Gateway.
func (g *Gateway) RawURL(loc gateway.Location) string {
	return "mem://" + loc.Owner + "/" + loc.Repo + "/" + loc.Branch + "/" + loc.Path
}

var _ gateway.Gateway = (*Gateway)(nil)
