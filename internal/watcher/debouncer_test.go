package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name     string
		first    Operation
		next     Operation
		wantOp   Operation
		wantKeep bool
	}{
		{"create then modify stays create", OpCreate, OpModify, OpCreate, true},
		{"create then delete cancels", OpCreate, OpDelete, 0, false},
		{"modify then delete is delete", OpModify, OpDelete, OpDelete, true},
		{"modify then modify is modify", OpModify, OpModify, OpModify, true},
		{"delete then create is modify", OpDelete, OpCreate, OpModify, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := coalesce(tt.first, FileEvent{Path: "/r/rules.json", Operation: tt.next})
			assert.Equal(t, tt.wantKeep, keep)
			if keep {
				assert.Equal(t, tt.wantOp, got.Operation)
			}
		})
	}
}

func TestDebouncer_MergesBurstIntoOneBatch(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(30*time.Millisecond, nil)
	defer d.Stop()

	// When: an editor saves by delete + create, then touches another file
	d.Add(FileEvent{Path: "/r/rules.json", Operation: OpDelete})
	d.Add(FileEvent{Path: "/r/rules.json", Operation: OpCreate})
	d.Add(FileEvent{Path: "/r/demo_rules.txt", Operation: OpModify})

	// Then: one sorted batch arrives with the replacement seen as a modify
	batch := receive(t, d)
	require.Len(t, batch, 2)
	assert.Equal(t, "/r/demo_rules.txt", batch[0].Path)
	assert.Equal(t, "/r/rules.json", batch[1].Path)
	assert.Equal(t, OpModify, batch[1].Operation)
}

func TestDebouncer_CancelledSequenceEmitsNothing(t *testing.T) {
	d := NewDebouncer(20*time.Millisecond, nil)
	defer d.Stop()

	d.Add(FileEvent{Path: "/r/tmp.json", Operation: OpCreate})
	d.Add(FileEvent{Path: "/r/tmp.json", Operation: OpDelete})

	select {
	case batch := <-d.Output():
		t.Fatalf("expected no batch, got %v", batch)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_StopClosesOutput(t *testing.T) {
	d := NewDebouncer(time.Hour, nil)
	d.Add(FileEvent{Path: "/r/rules.json", Operation: OpModify})

	d.Stop()
	d.Stop()
	d.Add(FileEvent{Path: "/r/rules.json", Operation: OpModify})

	_, ok := <-d.Output()
	assert.False(t, ok)
}
