package httpclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultTimeout, c.Timeout)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
	assert.Equal(t, DefaultIdleConnTimeout, tr.IdleConnTimeout)
	assert.Equal(t, DefaultTLSHandshakeTimeout, tr.TLSHandshakeTimeout)
}

func TestNewDoer_NativeIsHTTPClient(t *testing.T) {
	d := NewDoer(Config{Timeout: 5 * time.Second})
	c, ok := d.(*http.Client)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, c.Timeout)
}
