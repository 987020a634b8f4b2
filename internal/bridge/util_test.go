package bridge

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func Test_OrbitTimeToLocal(t *testing.T) {
	pr := log.New(io.Discard)

	got := orbitTimeToLocal("2020-01-09T20:29:59.000Z", pr)

	parsed, err := time.Parse(time.RFC3339, got)
	if err != nil {
		t.Fatalf("result %q is not RFC3339: %v", got, err)
	}

	want := time.Date(2020, 1, 9, 20, 29, 59, 0, time.UTC)
	if !parsed.Equal(want) {
		t.Errorf("orbitTimeToLocal() = %v, want the same instant as %v", parsed, want)
	}

	// garbage passes through unchanged
	if got := orbitTimeToLocal("not a timestamp", pr); got != "not a timestamp" {
		t.Errorf("orbitTimeToLocal() = %q, want passthrough", got)
	}
}
