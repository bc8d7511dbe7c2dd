package experiment

import (
	"errors"
	"testing"

	"github.com/san-kum/linkage/internal/config"
	"github.com/san-kum/linkage/internal/dynamo"
	"github.com/san-kum/linkage/internal/integrators"
)

func TestRegistryIntegrators(t *testing.T) {
	r := NewRegistry()

	want := []string{"euler", "leapfrog", "rk4", "rk45", "verlet"}
	got := r.ListIntegrators()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}

	a, err := r.GetIntegrator("rk45")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := r.GetIntegrator("rk45")
	if a == b {
		t.Error("expected a fresh integrator per lookup")
	}

	if _, err := r.GetIntegrator("midpoint"); !errors.Is(err, ErrUnknownIntegrator) {
		t.Errorf("expected ErrUnknownIntegrator, got %v", err)
	}
}

func TestBuildRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Integrator = "midpoint"
	if _, err := Build(cfg, Options{}); !errors.Is(err, ErrUnknownIntegrator) {
		t.Errorf("expected ErrUnknownIntegrator, got %v", err)
	}

	cfg = config.DefaultConfig()
	cfg.Linkage.Masses[1] = -1
	if _, err := Build(cfg, Options{}); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected config.ErrInvalid, got %v", err)
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	r.Register("midpoint", func() dynamo.Integrator { return integrators.NewRK4() })
	cfg := config.DefaultConfig()
	cfg.Integrator = "midpoint"
	cfg.Sim.SampleDt = 0.05
	if _, err := Build(cfg, Options{Registry: r}); err != nil {
		t.Fatal(err)
	}
}
