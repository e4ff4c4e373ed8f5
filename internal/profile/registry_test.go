package profile

import "testing"

func TestRegistrySelect(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(Runtime{Name: "GCP"})
	reg.Register(Runtime{Name: "GWS"})
	reg.Register(Runtime{Name: "gcp"})

	all, err := reg.Select()
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if len(all) != 2 || all[0].Name != "gcp" || all[1].Name != "GWS" {
		t.Fatalf("unexpected runtimes: %+v", all)
	}

	one, err := reg.Select("gws")
	if err != nil || len(one) != 1 || one[0].Name != "GWS" {
		t.Fatalf("unexpected selection: %+v %v", one, err)
	}

	if _, err := reg.Resolve("Blog"); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
	if got := len(reg.Pipelines()); got != 2 {
		t.Fatalf("expected 2 pipelines, got %d", got)
	}
}
