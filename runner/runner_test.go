package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domassert "github.com/hostedenv/dom-harness/assert"
	"github.com/hostedenv/dom-harness/dom"
	"github.com/hostedenv/dom-harness/types"
)

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return New(Config{Console: &buf}), &buf
}

func TestRunPendingExecutionOrder(t *testing.T) {
	r, _ := newTestRunner(t)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		r.Register(name, func(ctx context.Context) error {
			if name == "second" {
				// A slow test must not change completion order.
				time.Sleep(10 * time.Millisecond)
			}
			order = append(order, name)
			return nil
		})
	}

	ok, err := r.RunPending(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"first", "second", "third"}, order)

	results := r.Results()
	require.Len(t, results, 3)
	for i, name := range []string{"first", "second", "third"} {
		assert.Equal(t, name, results[i].Name)
		assert.True(t, results[i].Passed)
	}
}

func TestRunPendingFailureIsolation(t *testing.T) {
	r, _ := newTestRunner(t)

	boom := errors.New("boom")
	r.Register("fails", func(ctx context.Context) error { return boom })
	r.Register("panics", func(ctx context.Context) error { panic("kaboom") })
	ran := false
	r.Register("still runs", func(ctx context.Context) error {
		ran = true
		return nil
	})

	ok, err := r.RunPending(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, ran, "a failing case must not abort the batch")

	results := r.Results()
	require.Len(t, results, 3)
	assert.ErrorIs(t, results[0].Err, boom)
	assert.Contains(t, results[1].Err.Error(), "panic: kaboom")
	assert.True(t, results[2].Passed)
}

func TestRunScenario(t *testing.T) {
	r, buf := newTestRunner(t)

	r.Register("a+b", func(ctx context.Context) error {
		return domassert.Equal(1+1, 2)
	})
	r.Register("bad", func(ctx context.Context) error {
		return domassert.Equal(1, 2)
	})

	ok, err := r.RunPending(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	results := r.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "a+b", results[0].Name)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "bad", results[1].Name)
	assert.False(t, results[1].Passed)
	assert.True(t, types.IsAssertionError(results[1].Err))

	out := buf.String()
	assert.Contains(t, out, "📊 Tests: 2")
	assert.Contains(t, out, "✅ a+b")
	assert.Contains(t, out, "❌ bad")
	assert.Contains(t, out, "✅ Passed: 1")
	assert.Contains(t, out, "❌ Failed: 1")
}

func TestRunPendingEmptyBatchIsNoOp(t *testing.T) {
	r, buf := newTestRunner(t)

	r.Register("only", func(ctx context.Context) error { return nil })
	ok, err := r.RunPending(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	firstReport := buf.String()

	// Second trigger with no new registrations: empty batch, no report,
	// previous results retained.
	ok, err = r.RunPending(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, firstReport, buf.String())
	assert.Len(t, r.Results(), 1)
	assert.Equal(t, StateIdle, r.State())
}

func TestRegistrationMidRunStartsNextBatch(t *testing.T) {
	r, _ := newTestRunner(t)

	r.Register("outer", func(ctx context.Context) error {
		r.Register("inner", func(ctx context.Context) error { return nil })
		return nil
	})

	ok, err := r.RunPending(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, r.Results(), 1, "mid-run registration must not join the in-flight batch")

	ok, err = r.RunPending(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	results := r.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "inner", results[0].Name)
}

func TestConcurrentRunGuard(t *testing.T) {
	r, _ := newTestRunner(t)

	release := make(chan struct{})
	r.Register("blocks", func(ctx context.Context) error {
		<-release
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = r.RunPending(context.Background())
	}()

	require.Eventually(t, func() bool {
		return r.State() == StateRunning
	}, time.Second, time.Millisecond)

	_, err := r.RunPending(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	wg.Wait()
	assert.Equal(t, StateIdle, r.State())
}

func TestAutoRunAfterContentLoaded(t *testing.T) {
	var buf bytes.Buffer
	doc := dom.New()
	doc.SetConsole(dom.NewConsole(&buf))
	r := New(Config{Document: doc})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	executed := make(chan struct{})
	r.Register("auto", func(ctx context.Context) error {
		close(executed)
		return nil
	})

	// Nothing runs until the document signals readiness.
	select {
	case <-executed:
		t.Fatal("test ran before content-loaded fired")
	case <-time.After(20 * time.Millisecond):
	}

	doc.FireContentLoaded()
	doc.FireLoad()

	select {
	case <-executed:
	case <-time.After(time.Second):
		t.Fatal("auto-run did not fire")
	}

	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "🎉 All tests passed!")
	}, time.Second, 5*time.Millisecond)
}

func TestRegisterAfterReadySchedulesRun(t *testing.T) {
	doc := dom.New()
	doc.SetConsole(dom.NewConsole(&bytes.Buffer{}))
	r := New(Config{Document: doc})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	doc.FireContentLoaded()

	executed := make(chan struct{})
	r.Register("late", func(ctx context.Context) error {
		close(executed)
		return nil
	})

	select {
	case <-executed:
	case <-time.After(time.Second):
		t.Fatal("registration after readiness did not schedule a run")
	}
}

type recordingAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (a *recordingAlerter) Alert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

func TestFailingRunAlerts(t *testing.T) {
	doc := dom.New()
	doc.SetConsole(dom.NewConsole(&bytes.Buffer{}))
	alerter := &recordingAlerter{}
	doc.SetAlerter(alerter)
	r := New(Config{Document: doc})

	r.Register("bad", func(ctx context.Context) error { return errors.New("nope") })
	ok, err := r.RunPending(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, alerter.messages, 1)
	assert.Equal(t, "1 of 1 tests failed", alerter.messages[0])
}

func TestPassingRunDoesNotAlert(t *testing.T) {
	doc := dom.New()
	doc.SetConsole(dom.NewConsole(&bytes.Buffer{}))
	alerter := &recordingAlerter{}
	doc.SetAlerter(alerter)
	r := New(Config{Document: doc})

	r.Register("good", func(ctx context.Context) error { return nil })
	ok, err := r.RunPending(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, alerter.messages)
}

func TestRegisterUI(t *testing.T) {
	docMarkup := `<html><body>
<template id="widget"><button id="go">Go</button></template>
</body></html>`
	doc, err := dom.ParseString(docMarkup)
	require.NoError(t, err)
	doc.SetConsole(dom.NewConsole(&bytes.Buffer{}))
	r := New(Config{Document: doc})

	r.RegisterUI("widget renders", "#widget", func(sb *dom.Sandbox) error {
		if sb.Query("#go") == nil {
			return errors.New("missing button")
		}
		return nil
	})
	r.RegisterUI("missing template", "#nope", func(sb *dom.Sandbox) error {
		return nil
	})

	ok, err := r.RunPending(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	results := r.Results()
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)

	var fixtureErr *dom.FixtureError
	require.ErrorAs(t, results[1].Err, &fixtureErr)
	assert.Equal(t, dom.FixtureTemplateNotFound, fixtureErr.Kind)
}
