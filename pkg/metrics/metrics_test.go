package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "whoop_test_runs_total",
		Help: "Test counter",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	orig := Gatherer
	Gatherer = reg
	defer func() { Gatherer = orig }()

	path := filepath.Join(t.TempDir(), "whoop.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "whoop_test_runs_total 3") {
		t.Errorf("textfile = %q, want counter value", string(data))
	}
}

func TestWriteTextfile_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"missing directory", filepath.Join(t.TempDir(), "nope", "whoop.prom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := WriteTextfile(tt.path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
