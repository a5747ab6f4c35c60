package state

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state.json"))
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s := newTestStore(t)
	got := s.Load()
	if !reflect.DeepEqual(got, Default()) {
		t.Errorf("Load() = %+v, want defaults", got)
	}
}

func TestLoadCorruptFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path)
	got := s.Load()
	if !reflect.DeepEqual(got, Default()) {
		t.Errorf("Load() on corrupt file = %+v, want defaults", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	height := int64(123456)
	tests := []struct {
		name  string
		state PersistedState
	}{
		{"defaults", Default()},
		{
			"populated",
			PersistedState{
				LastSeenTimestamp: "2024-03-01T10:00:09Z",
				LastHeight:        &height,
				Counters:          Counters{Mined: 3, Processed: 12, Sealed: 5},
			},
		},
		{
			"watermark without height",
			PersistedState{LastSeenTimestamp: "2024-03-01T10:00:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			s.Save(tt.state)
			got := s.Load()
			if !reflect.DeepEqual(got, tt.state) {
				t.Errorf("round trip = %+v, want %+v", got, tt.state)
			}
		})
	}
}

func TestResetIdempotent(t *testing.T) {
	s := newTestStore(t)
	s.Save(PersistedState{
		LastSeenTimestamp: "2024-03-01T10:00:00Z",
		Counters:          Counters{Mined: 9},
	})

	first := s.Reset()
	second := s.Reset()

	if !reflect.DeepEqual(first, Default()) {
		t.Errorf("first Reset() = %+v, want defaults", first)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Reset() not idempotent: %+v vs %+v", first, second)
	}
	if got := s.Load(); !reflect.DeepEqual(got, Default()) {
		t.Errorf("Load() after reset = %+v, want defaults", got)
	}
}

func TestUpdateReadModifyWrite(t *testing.T) {
	s := newTestStore(t)

	got := s.Update(func(st *PersistedState) {
		st.Counters.Mined += 2
		st.LastSeenTimestamp = "2024-03-01T10:00:00Z"
	})
	if got.Counters.Mined != 2 {
		t.Fatalf("Update() returned mined = %d, want 2", got.Counters.Mined)
	}

	got = s.Update(func(st *PersistedState) {
		st.Counters.Mined += 3
	})
	if got.Counters.Mined != 5 {
		t.Errorf("second Update() mined = %d, want cumulative 5", got.Counters.Mined)
	}
	if got.LastSeenTimestamp != "2024-03-01T10:00:00Z" {
		t.Errorf("Update() lost watermark: %q", got.LastSeenTimestamp)
	}
}

func TestUpdateConcurrentIncrements(t *testing.T) {
	s := newTestStore(t)

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			s.Update(func(st *PersistedState) {
				st.Counters.Processed++
			})
		}()
	}
	wg.Wait()

	if got := s.Load().Counters.Processed; got != workers {
		t.Errorf("concurrent Update() total = %d, want %d", got, workers)
	}
}

func TestSaveIsAtomicReplace(t *testing.T) {
	s := newTestStore(t)
	s.Save(Default())
	s.Save(PersistedState{Counters: Counters{Sealed: 1}})

	// The temp file must not linger after a successful rename.
	if _, err := os.Stat(s.path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind after save: stat err = %v", err)
	}
	if got := s.Load().Counters.Sealed; got != 1 {
		t.Errorf("Load() sealed = %d, want 1", got)
	}
}
