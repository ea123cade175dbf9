package app

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealthAndMetrics(t *testing.T) {
	a := New(Options{Name: "test", Log: zap.NewNop(), DB: pinger{}})

	resp, err := a.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = a.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), "pensezy_http_requests_total")

	down := New(Options{Name: "test", Log: zap.NewNop(), DB: pinger{err: errors.New("refused")}})
	resp, err = down.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestPanicIsRenderedAsEnvelope(t *testing.T) {
	a := New(Options{Name: "test", Log: zap.NewNop(), DB: pinger{}})
	a.Get("/boom", func(*fiber.Ctx) error { panic("kaput") })

	resp, err := a.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"error":"Une erreur est survenue`)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestKeyLimiterSerialisesPerKey(t *testing.T) {
	l := NewKeyLimiter()
	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("order-1")
			defer unlock()
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Zero(t, l.size())

	// distinct keys do not block each other
	u1 := l.Lock("a")
	done := make(chan struct{})
	go func() {
		l.Lock("b")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked by a")
	}
	u1()
}
