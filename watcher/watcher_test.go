package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetsync-bridge/tabular"
)

func fastOptions(file string) Options {
	return Options{
		File:           file,
		Debounce:       10 * time.Millisecond,
		StableChecks:   2,
		StableInterval: 5 * time.Millisecond,
		ReadRetries:    20,
		RetryDelay:     5 * time.Millisecond,
	}
}

func TestNew_RequiresFile(t *testing.T) {
	_, err := New(Options{}, func(context.Context, *tabular.Table) {})
	assert.Error(t, err)
}

func TestOptions_Defaults(t *testing.T) {
	var o Options
	o.applyDefaults()

	assert.Equal(t, time.Second, o.Debounce)
	assert.Equal(t, 3, o.StableChecks)
	assert.Equal(t, 300*time.Millisecond, o.StableInterval)
	assert.Equal(t, 40, o.ReadRetries)
	assert.Equal(t, 750*time.Millisecond, o.RetryDelay)
}

func TestWaitUntilStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte("email\na@b.c\n"), 0o644))

	ok := waitUntilStable(context.Background(), path, 2, time.Millisecond, 20)
	assert.True(t, ok)
}

func TestWaitUntilStable_GivesUpOnMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-there.csv")

	ok := waitUntilStable(context.Background(), path, 2, time.Millisecond, 5)
	assert.False(t, ok)
}

func TestCopyToTemp_KeepsExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte("email\na@b.c\n"), 0o644))

	tmp, err := copyToTemp(context.Background(), path, 3, time.Millisecond)
	require.NoError(t, err)
	defer os.Remove(tmp)

	assert.Equal(t, filepath.Join(dir, "contacts.tmpcopy.csv"), tmp)

	got, err := os.ReadFile(tmp)
	require.NoError(t, err)
	assert.Equal(t, "email\na@b.c\n", string(got))
}

func TestReadTable_ParsesCopyAndRemovesIt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte("email,first name\nada@example.com,Ada\n"), 0o644))

	w, err := New(fastOptions(path), func(context.Context, *tabular.Table) {})
	require.NoError(t, err)

	table, err := w.readTable(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"email", "first name"}, table.Headers)
	require.Len(t, table.Rows, 1)

	_, err = os.Stat(filepath.Join(dir, "contacts.tmpcopy.csv"))
	assert.True(t, os.IsNotExist(err), "temp copy must be cleaned up")
}

func TestOnChange_DebouncesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte("email\na@b.c\n"), 0o644))

	calls := 0
	opts := fastOptions(path)
	opts.Debounce = time.Hour
	w, err := New(opts, func(context.Context, *tabular.Table) { calls++ })
	require.NoError(t, err)

	ctx := context.Background()
	w.onChange(ctx)
	w.onChange(ctx)
	w.onChange(ctx)

	assert.Equal(t, 1, calls, "burst within the debounce window is one change")
}

func TestRun_DispatchesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contacts.csv")

	got := make(chan *tabular.Table, 1)
	w, err := New(fastOptions(path), func(_ context.Context, table *tabular.Table) {
		select {
		case got <- table:
		default:
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the directory watch a moment to attach before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("email\nada@example.com\n"), 0o644))

	select {
	case table := <-got:
		require.Len(t, table.Rows, 1)
		assert.Equal(t, []string{"ada@example.com"}, table.Rows[0])
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called after a file write")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRun_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contacts.csv")

	called := make(chan struct{}, 1)
	w, err := New(fastOptions(path), func(context.Context, *tabular.Table) {
		select {
		case called <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.csv"), []byte("x\n"), 0o644))

	select {
	case <-called:
		t.Fatal("handler fired for a file outside the watch target")
	case <-time.After(300 * time.Millisecond):
	}
}
