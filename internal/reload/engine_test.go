package reload

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/confreload/confreload/internal/confparser"
	"github.com/confreload/confreload/internal/registry"
)

type mapFS map[string][]byte

func (m mapFS) ReadFile(path string) ([]byte, error) {
	if b, ok := m[path]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("no such file: %s", path)
}

func abs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		panic(err)
	}
	return p
}

func fixedNow() time.Time { return time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC) }

func baseRegistry() *registry.Memory {
	m := registry.NewMemory()
	m.Register(registry.Setting{Name: "work_mem", Kind: registry.KindString, ChangeClass: registry.RuntimeByAny, Value: "4MB"})
	m.Register(registry.Setting{Name: "max_connections", Kind: registry.KindInteger, ChangeClass: registry.OnlyAtBoot, Value: "200"})
	m.Register(registry.Setting{Name: "shared_buffers", Kind: registry.KindString, ChangeClass: registry.OnlyAtBoot, Value: "32MB"})
	m.Register(registry.Setting{Name: "custom_variable_classes", Kind: registry.KindString, ChangeClass: registry.RuntimeByAny, Value: ""})
	return m
}

// scenario 1: basic assign
func TestRun_BasicAssign(t *testing.T) {
	fs := mapFS{abs("/conf/main.conf"): []byte("work_mem = '64MB'\n")}
	reg := baseRegistry()

	report, err := Run(fs, reg, "main.conf", registry.Boot, Options{Now: fixedNow, DataDir: abs("/conf")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s, _ := reg.Find("work_mem")
	if s.Value != "64MB" || s.Source != registry.SourceFile {
		t.Fatalf("got %+v", s)
	}
	_ = report
}

// scenario 2: atomic failure
func TestRun_AtomicFailure(t *testing.T) {
	fs := mapFS{abs("/conf/main.conf"): []byte("work_mem='64MB'\nbogus_param=1\n")}
	reg := baseRegistry()
	before, _ := reg.Find("work_mem")
	beforeCopy := *before

	_, err := Run(fs, reg, "main.conf", registry.Boot, Options{Now: fixedNow, DataDir: abs("/conf")})
	if err == nil {
		t.Fatalf("expected a failure for the unknown parameter")
	}
	after, _ := reg.Find("work_mem")
	if after.Value != beforeCopy.Value || after.Source != beforeCopy.Source {
		t.Fatalf("registry mutated despite reload failure: got %+v, want %+v", after, beforeCopy)
	}
}

// scenario 3: include and depth
func TestRun_IncludeAndDepth(t *testing.T) {
	fs := mapFS{
		abs("/conf/a.conf"): []byte("include 'b.conf'\n"),
		abs("/conf/b.conf"): []byte("shared_buffers = '128MB'\n"),
	}
	reg := baseRegistry()
	_, err := Run(fs, reg, "a.conf", registry.Boot, Options{Now: fixedNow, DataDir: abs("/conf")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s, _ := reg.Find("shared_buffers")
	if s.Value != "128MB" {
		t.Fatalf("got %+v", s)
	}
	if s.SourceFile != abs("/conf/b.conf") {
		t.Fatalf("got SourceFile %q, want the absolute path of b.conf", s.SourceFile)
	}

	fs[abs("/conf/b.conf")] = []byte("include 'a.conf'\n")
	_, err = Run(fs, reg, "a.conf", registry.Boot, Options{Now: fixedNow, DataDir: abs("/conf")})
	re, ok := err.(*Error)
	if !ok || re.Kind != Limit {
		t.Fatalf("got %v, want a Limit error", err)
	}
}

// scenario 4: custom class
func TestRun_CustomClass(t *testing.T) {
	fs := mapFS{abs("/conf/main.conf"): []byte(
		"custom_variable_classes='myapp'\nmyapp.flag='on'\n",
	)}
	reg := baseRegistry()
	_, err := Run(fs, reg, "main.conf", registry.Boot, Options{Now: fixedNow, DataDir: abs("/conf")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s, ok := reg.Find("myapp.flag")
	if !ok || s.Value != "on" {
		t.Fatalf("got %+v, ok=%v", s, ok)
	}

	fs2 := mapFS{abs("/conf/main2.conf"): []byte(
		"custom_variable_classes='other'\nmyapp.flag='on'\n",
	)}
	reg2 := baseRegistry()
	_, err = Run(fs2, reg2, "main2.conf", registry.Boot, Options{Now: fixedNow, DataDir: abs("/conf")})
	re, ok := err.(*Error)
	if !ok || re.Kind != SemanticUnknown {
		t.Fatalf("got %v, want SemanticUnknown", err)
	}
}

// scenario 6: removed startup-only setting
func TestRun_RemovedStartupOnly(t *testing.T) {
	fs := mapFS{abs("/conf/main.conf"): []byte("max_connections = 200\n")}
	reg := baseRegistry()
	if _, err := Run(fs, reg, "main.conf", registry.Boot, Options{Now: fixedNow, DataDir: abs("/conf")}); err != nil {
		t.Fatalf("boot: %v", err)
	}

	fs[abs("/conf/main.conf")] = []byte("# max_connections removed\n")
	report, err := Run(fs, reg, "main.conf", registry.Reload, Options{Now: fixedNow, DataDir: abs("/conf")})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Name != "max_connections" {
		t.Fatalf("got warnings %+v", report.Warnings)
	}
	s, _ := reg.Find("max_connections")
	if s.Value != "200" {
		t.Fatalf("running value changed: %+v", s)
	}
	if s.ResetSource == registry.SourceFile {
		t.Fatalf("reset_source should no longer be file: %+v", s)
	}
}

// removal revert: a reload-eligible setting removed from the file reverts
// to its boot default with source "default".
func TestRun_RemovalRevert(t *testing.T) {
	fs := mapFS{abs("/conf/main.conf"): []byte("work_mem = '64MB'\n")}
	reg := baseRegistry()
	if _, err := Run(fs, reg, "main.conf", registry.Boot, Options{Now: fixedNow, DataDir: abs("/conf")}); err != nil {
		t.Fatalf("boot: %v", err)
	}

	fs[abs("/conf/main.conf")] = []byte("# work_mem removed\n")
	report, err := Run(fs, reg, "main.conf", registry.Reload, Options{Now: fixedNow, DataDir: abs("/conf")})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(report.Removed) != 1 || report.Removed[0].Name != "work_mem" {
		t.Fatalf("got removed %+v", report.Removed)
	}
	s, _ := reg.Find("work_mem")
	if s.Value != "4MB" || s.Source != registry.SourceDefault {
		t.Fatalf("got %+v, want reverted to boot default", s)
	}
}

// idempotence: reloading twice produces no change-log records the second
// time.
func TestRun_Idempotence(t *testing.T) {
	fs := mapFS{abs("/conf/main.conf"): []byte("work_mem = '64MB'\n")}
	reg := baseRegistry()
	opts := Options{Now: fixedNow, DataDir: abs("/conf"), RootProcess: true}

	if _, err := Run(fs, reg, "main.conf", registry.Boot, opts); err != nil {
		t.Fatalf("boot: %v", err)
	}
	report1, err := Run(fs, reg, "main.conf", registry.Reload, opts)
	if err != nil {
		t.Fatalf("reload 1: %v", err)
	}
	if len(report1.Changed) != 0 {
		t.Fatalf("first reload after boot should already be a no-op: %+v", report1.Changed)
	}
	report2, err := Run(fs, reg, "main.conf", registry.Reload, opts)
	if err != nil {
		t.Fatalf("reload 2: %v", err)
	}
	if len(report2.Changed) != 0 {
		t.Fatalf("second identical reload produced changes: %+v", report2.Changed)
	}
}

// order independence of the whitelist: moving the whitelist assignment to
// any position in the file does not change the outcome for other
// assignments.
func TestRun_WhitelistOrderIndependence(t *testing.T) {
	first := "custom_variable_classes='myapp'\nmyapp.flag='on'\nwork_mem='8MB'\n"
	later := "work_mem='8MB'\nmyapp.flag='on'\ncustom_variable_classes='myapp'\n"

	for _, src := range []string{first, later} {
		fs := mapFS{abs("/conf/main.conf"): []byte(src)}
		reg := baseRegistry()
		_, err := Run(fs, reg, "main.conf", registry.Boot, Options{Now: fixedNow, DataDir: abs("/conf")})
		if err != nil {
			t.Fatalf("Run(%q): %v", src, err)
		}
		flag, ok := reg.Find("myapp.flag")
		if !ok || flag.Value != "on" {
			t.Fatalf("Run(%q): got %+v, ok=%v", src, flag, ok)
		}
		wm, _ := reg.Find("work_mem")
		if wm.Value != "8MB" {
			t.Fatalf("Run(%q): got work_mem=%+v", src, wm)
		}
	}
}

func TestRun_ChangeLoggingOnlyInRootProcess(t *testing.T) {
	fs := mapFS{abs("/conf/main.conf"): []byte("work_mem = '64MB'\n")}
	reg := baseRegistry()
	if _, err := Run(fs, reg, "main.conf", registry.Boot, Options{Now: fixedNow, DataDir: abs("/conf")}); err != nil {
		t.Fatalf("boot: %v", err)
	}

	fs[abs("/conf/main.conf")] = []byte("work_mem = '128MB'\n")
	report, err := Run(fs, reg, "main.conf", registry.Reload, Options{Now: fixedNow, DataDir: abs("/conf"), RootProcess: true})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(report.Changed) != 1 || report.Changed[0].NewValue != "128MB" {
		t.Fatalf("got %+v", report.Changed)
	}
}
