package memgateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-archive/tessera/pkg/gateway"
)

var loc = gateway.Location{Owner: "o", Repo: "r", Branch: "main", Path: "data/config.json"}

func TestBlobSHA_MatchesGit(t *testing.T) {
	// git hash-object of an empty file
	assert.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", BlobSHA(nil))
	// printf 'hello\n' | git hash-object --stdin
	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", BlobSHA([]byte("hello\n")))
}

func TestWriteFile_CreateThenConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	g := New()

	_, err := g.ReadFile(ctx, loc)
	require.ErrorIs(t, err, gateway.ErrNotFound)

	res, err := g.WriteFile(ctx, loc, []byte("v1"), gateway.WriteOptions{Message: "create"})
	require.NoError(t, err)

	f, err := g.ReadFile(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, res.Revision, f.Revision)
	assert.Equal(t, "v1", string(f.Content))

	_, err = g.WriteFile(ctx, loc, []byte("v2"), gateway.WriteOptions{ExpectedRevision: f.Revision})
	require.NoError(t, err)

	_, err = g.WriteFile(ctx, loc, []byte("v3"), gateway.WriteOptions{ExpectedRevision: f.Revision})
	var conflict *gateway.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, gateway.ErrConflict)
	assert.Equal(t, f.Revision, conflict.ExpectedRevision)

	raw, err := g.ReadRaw(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(raw))
}

func TestWriteFile_CreateOverExistingConflicts(t *testing.T) {
	g := New()
	g.Put(loc, []byte("external"))

	_, err := g.WriteFile(context.Background(), loc, []byte("mine"), gateway.WriteOptions{})
	assert.ErrorIs(t, err, gateway.ErrConflict)
}

func TestFail_InjectsOnce(t *testing.T) {
	g := New()
	boom := errors.New("network down")
	g.Fail(OpReadRaw, boom)

	_, err := g.ReadRaw(context.Background(), loc)
	assert.ErrorIs(t, err, boom)

	_, err = g.ReadRaw(context.Background(), loc)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.Equal(t, 2, g.Calls(OpReadRaw))
}

func TestAuthorize(t *testing.T) {
	g := New()
	g.Authorize = func() error { return gateway.ErrUnauthorized }

	_, err := g.WriteFile(context.Background(), loc, []byte("x"), gateway.WriteOptions{})
	assert.ErrorIs(t, err, gateway.ErrUnauthorized)
	_, ok := func() ([]byte, bool) { b, _, ok := g.Get(loc); return b, ok }()
	assert.False(t, ok)
}
