package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestExtractPrintsPayload(t *testing.T) {
	out, _, err := execute(t, "extract", "testdata/feeder.xml", "--user", "ops@example.com")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var payload map[string]map[string]string
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(payload) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(payload))
	}
	if payload["0"]["user_email"] != "ops@example.com" {
		t.Fatalf("unexpected parameters %v", payload["0"])
	}
	if payload["1"]["typ"] != "ExternalGrid0" {
		t.Fatalf("expected the external grid first, got %v", payload["1"])
	}
}

func TestExtractStorageWithParamsFile(t *testing.T) {
	dir := t.TempDir()
	params := filepath.Join(dir, "params.yaml")
	if err := os.WriteFile(params, []byte("horizon_h: 48\nobjective: self_consumption\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "model.json")
	_, _, err := execute(t, "extract", "testdata/feeder.xml", "--calc", "storage-sizing", "--params", params, "-o", out, "--pretty")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"typ": "StorageSizing Parameters"`, `"horizon_h": "48"`, `"objective": "self_consumption"`, `"user_email": "unknown"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("output missing %s", want)
		}
	}
}

func TestExtractRejectsBadInput(t *testing.T) {
	if _, _, err := execute(t, "extract", "testdata/missing.xml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, _, err := execute(t, "extract", "testdata/feeder.xml", "--calc", "harmonics"); err == nil {
		t.Fatal("expected error for unknown calc")
	}
}

func TestAnnotateRendersSavedResponse(t *testing.T) {
	out, errOut, err := execute(t, "annotate", "testdata/feeder.xml", "testdata/response.json")
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if !strings.Contains(out, `id="Result_14"`) || !strings.Contains(out, `id="Result_12"`) {
		t.Fatalf("overlays missing from output:\n%s", out)
	}
	if !strings.Contains(out, "Vm[pu]: n/a") {
		t.Error("non-finite voltage should render as n/a")
	}
	if !strings.Contains(errOut, "overloaded") {
		t.Errorf("expected the overload notice, got %q", errOut)
	}
}

func TestRunAgainstSolver(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"busbars":[{"name":"mxCell_11","vm_pu":1.0},{"name":"mxCell_12","vm_pu":0.96}]}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := filepath.Join(dir, "gridlink.yaml")
	if err := os.WriteFile(cfg, []byte("solver:\n  url: "+srv.URL+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOLVER_URL", "")

	out, errOut, err := execute(t, "run", "testdata/feeder.xml", "--config", cfg, "--user", "ops@example.com")
	if err != nil {
		t.Fatalf("run: %v (%s)", err, errOut)
	}
	if len(got) != 6 {
		t.Fatalf("solver received %d entries", len(got))
	}
	if !strings.Contains(out, `id="Result_11"`) {
		t.Fatal("annotated diagram missing bus overlay")
	}
	if !strings.Contains(errOut, "5 records, 2 overlays") {
		t.Errorf("unexpected summary %q", errOut)
	}
}
