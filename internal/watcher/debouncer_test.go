package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced batch")
		return nil
	}
}

func TestDebouncer_CoalescesCreateThenModify(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "/a.md", Operation: OpCreate})
	d.Add(FileEvent{Path: "/a.md", Operation: OpModify})

	batch := collect(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncer_CreateThenDeleteCancels(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "/a.md", Operation: OpCreate})
	d.Add(FileEvent{Path: "/a.md", Operation: OpDelete})
	d.Add(FileEvent{Path: "/b.md", Operation: OpModify})

	batch := collect(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, "/b.md", batch[0].Path)
}

func TestDebouncer_DeleteThenCreateBecomesModify(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "/a.md", Operation: OpDelete})
	d.Add(FileEvent{Path: "/a.md", Operation: OpCreate})

	batch := collect(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_SeparatePathsBothEmitted(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "/a.md", Operation: OpModify})
	d.Add(FileEvent{Path: "/b.md", Operation: OpModify})

	batch := collect(t, d)
	assert.Len(t, batch, 2)
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	d := NewDebouncer(time.Millisecond)
	d.Stop()
	d.Stop()
	// Adding after stop is a no-op.
	d.Add(FileEvent{Path: "/a.md", Operation: OpModify})
}
