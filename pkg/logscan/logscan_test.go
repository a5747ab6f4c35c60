package logscan

import (
	"reflect"
	"testing"
)

func TestTimestamps(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			"docker timestamps with Z",
			"2024-03-01T10:00:00.123456789Z starting\n2024-03-01T10:00:05Z ready",
			[]string{"2024-03-01T10:00:00.123456789Z", "2024-03-01T10:00:05Z"},
		},
		{
			"space separator and offset",
			"2024-03-01 10:00:00+02:00 imported block",
			[]string{"2024-03-01 10:00:00+02:00"},
		},
		{"no timestamps", "plain text without dates", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Timestamps(tt.text)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Timestamps() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLastTimestamp(t *testing.T) {
	text := "2024-03-01T10:00:00Z first\n2024-03-01T10:00:09Z last"
	if got := LastTimestamp(text); got != "2024-03-01T10:00:09Z" {
		t.Errorf("LastTimestamp() = %q, want %q", got, "2024-03-01T10:00:09Z")
	}
	if got := LastTimestamp("no dates here"); got != "" {
		t.Errorf("LastTimestamp() = %q, want empty", got)
	}
}

func TestMaxInt(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int64
		found    bool
	}{
		{"thousands separators", "height=1,234,567 imported", 1234567, true},
		{"max across matches", "height=100 then height=4,200 then height=90", 4200, true},
		{"max across patterns", "block 500 at tip height 1200", 1200, true},
		{"case insensitive keyword", "Height=77", 77, true},
		{"no match", "nothing numeric about blocks here", 0, false},
		{"empty text", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := MaxInt(HeightPatterns, tt.text)
			if found != tt.found {
				t.Fatalf("MaxInt() found = %v, want %v", found, tt.found)
			}
			if found && got != tt.expected {
				t.Errorf("MaxInt() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestMaxIntDeterministic(t *testing.T) {
	text := "tip height 9,001 and block 12"
	first, ok := MaxInt(HeightPatterns, text)
	if !ok {
		t.Fatal("expected a match")
	}
	for i := 0; i < 5; i++ {
		got, ok := MaxInt(HeightPatterns, text)
		if !ok || got != first {
			t.Fatalf("MaxInt() not deterministic: run %d got (%d, %v), want (%d, true)", i, got, ok, first)
		}
	}
}

func TestCountOccurrences(t *testing.T) {
	tests := []struct {
		name     string
		set      PatternSet
		text     string
		expected int
	}{
		{"single keyword", MinedPatterns, "block mined at 10:01", 1},
		{"case insensitive", MinedPatterns, "Mined one, MINED two", 2},
		{
			"overlapping family members both count",
			SealedPatterns,
			"block sealed successfully",
			2, // "sealed" and "block sealed" both match by design
		},
		{"processed variants", ProcessedPatterns, "accepted, applied, processed", 3},
		{"no matches", MinedPatterns, "idle", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountOccurrences(tt.set, tt.text); got != tt.expected {
				t.Errorf("CountOccurrences() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestHealthPriorityOrder(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected HealthState
	}{
		{"error beats mining", "mined a block but then fatal error in sealer", HealthError},
		{"error beats syncing", "syncing... error: peer dropped", HealthError},
		{"syncing beats mining", "syncing while block mined", HealthSyncing},
		{"mining", "block mined and sealed", HealthMining},
		{"connected only", "connected to 5 peers", HealthConnected},
		{"nothing recognized", "tick tock", HealthUnclear},
		{"empty window", "", HealthUnclear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, msg := Health(tt.text, HealthOptions{})
			if state != tt.expected {
				t.Errorf("Health() = %q, want %q", state, tt.expected)
			}
			if msg == "" {
				t.Error("Health() returned empty message")
			}
		})
	}
}

func TestHealthErrorThreshold(t *testing.T) {
	text := "one incidental error while mining a block"

	state, _ := Health(text, HealthOptions{})
	if state != HealthError {
		t.Errorf("threshold disabled: Health() = %q, want %q", state, HealthError)
	}

	state, _ = Health(text, HealthOptions{ErrorThreshold: 3})
	if state != HealthMining {
		t.Errorf("below threshold: Health() = %q, want %q", state, HealthMining)
	}

	noisy := "error error error while mining"
	state, _ = Health(noisy, HealthOptions{ErrorThreshold: 3})
	if state != HealthError {
		t.Errorf("at threshold: Health() = %q, want %q", state, HealthError)
	}
}

func TestSyncStatus(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"error wins", "error while syncing", SyncError},
		{"syncing keyword", "downloading block bodies", SyncSyncing},
		{"exact import phrase required for synced", "Imported new chain segment number=88", SyncSynced},
		{"mined alone is not synced", "block mined and sealed", SyncNotAvail},
		{"empty", "", SyncNotAvail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SyncStatus(tt.text); got != tt.expected {
				t.Errorf("SyncStatus(%q) = %q, want %q", tt.text, got, tt.expected)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"rfc3339 z", "2024-03-01T10:00:00Z", true},
		{"fractional", "2024-03-01T10:00:00.123456Z", true},
		{"offset", "2024-03-01T10:00:00+02:00", true},
		{"space separator", "2024-03-01 10:00:00Z", true},
		{"zoneless", "2024-03-01T10:00:00", true},
		{"garbage", "not a timestamp", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, ok := ParseTimestamp(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ParseTimestamp(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && parsed.IsZero() {
				t.Errorf("ParseTimestamp(%q) returned zero time", tt.raw)
			}
		})
	}

	parsed, ok := ParseTimestamp("2024-03-01T12:00:00+02:00")
	if !ok {
		t.Fatal("expected parse")
	}
	if parsed.Hour() != 10 {
		t.Errorf("offset not normalized to UTC: hour = %d, want 10", parsed.Hour())
	}
}
