package lab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"vmforge/internal/config"
	"vmforge/internal/provider"
	"vmforge/internal/remote"

	"go.uber.org/zap"
)

type fakeProvider struct {
	trace        *[]string
	validateErr error
	generateErr error
	status      string
}

func (f *fakeProvider) ValidatePrerequisites(ctx context.Context, cfg config.Source) error {
	*f.trace = append(*f.trace, "validate")
	return f.validateErr
}

func (f *fakeProvider) GenerateVariables(ctx context.Context, outputPath string, cfg config.Source) error {
	*f.trace = append(*f.trace, "generate")
	if f.generateErr != nil {
		return f.generateErr
	}
	return os.WriteFile(outputPath, []byte("provider = \"fake\"\n"), 0644)
}

func (f *fakeProvider) Describe() provider.Info {
	return provider.Info{Name: "fake", Description: "test backend"}
}

type statusProvider struct {
	fakeProvider
}

func (s *statusProvider) Status(ctx context.Context, cfg config.Source) (string, error) {
	return s.status, nil
}

type fakeEngine struct {
	trace      *[]string
	applyErr   error
	destroyErr error
	address    string
}

func (f *fakeEngine) Apply(ctx context.Context, varFile string) error {
	*f.trace = append(*f.trace, "apply")
	return f.applyErr
}

func (f *fakeEngine) Destroy(ctx context.Context, varFile string) error {
	*f.trace = append(*f.trace, "destroy")
	return f.destroyErr
}

func (f *fakeEngine) Output(ctx context.Context, name string) (string, error) {
	*f.trace = append(*f.trace, "output "+name)
	return f.address, nil
}

type fakeConn struct {
	trace *[]string
}

func (f *fakeConn) Run(command string) error {
	*f.trace = append(*f.trace, "run "+command)
	return nil
}

func (f *fakeConn) Upload(localPath, remotePath string) error {
	*f.trace = append(*f.trace, "upload "+localPath+" "+remotePath)
	return nil
}

func (f *fakeConn) Close() error { return nil }

type fakeRunner struct {
	calls []string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	return "", nil
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

func newTestLab(t *testing.T, cfg *config.Source, p any, eng *fakeEngine, trace *[]string) *Lab {
	t.Helper()

	registry := provider.NewRegistry()
	if err := registry.Register("fake", func() any { return p }); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	l := New(cfg, registry)
	l.engine = eng
	l.runner = &fakeRunner{}
	l.log = zap.NewNop()
	l.dial = func(rc remote.Config) (vmConn, error) {
		*trace = append(*trace, "dial "+rc.Host)
		return &fakeConn{trace: trace}, nil
	}
	l.probes = func(client vmConn, commands []string) error {
		*trace = append(*trace, fmt.Sprintf("probes %d", len(commands)))
		return nil
	}
	return l
}

func testConfig(t *testing.T) *config.Source {
	t.Helper()
	return &config.Source{
		Provider: "fake",
		VM:       config.VM{Name: "lab-vm", Username: "tester"},
		Engine:   config.Engine{Binary: "tofu", Dir: t.TempDir()},
	}
}

func TestUpStageOrder(t *testing.T) {
	var trace []string
	cfg := testConfig(t)
	cfg.Checks = []string{"systemctl is-active sshd"}
	eng := &fakeEngine{trace: &trace, address: "192.0.2.7"}

	l := newTestLab(t, cfg, &fakeProvider{trace: &trace}, eng, &trace)
	if err := l.Up(context.Background()); err != nil {
		t.Fatalf("Up() unexpected error = %v", err)
	}

	want := []string{"validate", "generate", "apply", "output vm_ip", "dial 192.0.2.7", "probes 1"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("stage order = %v, want %v", trace, want)
	}

	if _, err := os.Stat(filepath.Join(cfg.Engine.Dir, UserDataFileName)); err != nil {
		t.Errorf("first-boot configuration not written: %v", err)
	}
}

func TestUpAbortsOnPrerequisiteFailure(t *testing.T) {
	var trace []string
	cfg := testConfig(t)
	eng := &fakeEngine{trace: &trace}
	p := &fakeProvider{trace: &trace, validateErr: fmt.Errorf("virsh not found")}

	l := newTestLab(t, cfg, p, eng, &trace)
	err := l.Up(context.Background())
	if err == nil {
		t.Fatal("Up() expected error, got nil")
	}
	if !reflect.DeepEqual(trace, []string{"validate"}) {
		t.Errorf("stages after fatal validation = %v, want only validate", trace)
	}
}

func TestUpAbortsOnGenerateFailure(t *testing.T) {
	var trace []string
	cfg := testConfig(t)
	eng := &fakeEngine{trace: &trace}
	p := &fakeProvider{trace: &trace, generateErr: fmt.Errorf("vm name is required")}

	l := newTestLab(t, cfg, p, eng, &trace)
	if err := l.Up(context.Background()); err == nil {
		t.Fatal("Up() expected error, got nil")
	}
	for _, stage := range trace {
		if stage == "apply" {
			t.Error("engine apply ran after failed variable generation")
		}
	}
}

func TestUpSkipsProbesWithoutChecks(t *testing.T) {
	var trace []string
	cfg := testConfig(t)
	eng := &fakeEngine{trace: &trace, address: "192.0.2.8"}

	l := newTestLab(t, cfg, &fakeProvider{trace: &trace}, eng, &trace)
	if err := l.Up(context.Background()); err != nil {
		t.Fatalf("Up() unexpected error = %v", err)
	}
	for _, stage := range trace {
		if strings.HasPrefix(stage, "dial") {
			t.Error("dialed the VM with no checks configured")
		}
	}
}

func TestDownRequiresVarFile(t *testing.T) {
	var trace []string
	cfg := testConfig(t)
	eng := &fakeEngine{trace: &trace}

	l := newTestLab(t, cfg, &fakeProvider{trace: &trace}, eng, &trace)
	err := l.Down(context.Background())
	if err == nil {
		t.Fatal("Down() expected error without a variables artifact")
	}
	if len(trace) != 0 {
		t.Errorf("stages = %v, want none", trace)
	}
}

func TestDownDestroys(t *testing.T) {
	var trace []string
	cfg := testConfig(t)
	eng := &fakeEngine{trace: &trace}

	l := newTestLab(t, cfg, &fakeProvider{trace: &trace}, eng, &trace)
	if err := os.WriteFile(l.VarFile(), []byte("provider = \"fake\"\n"), 0644); err != nil {
		t.Fatalf("writing variables artifact: %v", err)
	}
	if err := l.Down(context.Background()); err != nil {
		t.Fatalf("Down() unexpected error = %v", err)
	}
	if !reflect.DeepEqual(trace, []string{"destroy"}) {
		t.Errorf("stages = %v, want destroy", trace)
	}
}

func TestPushUploadsOverSSH(t *testing.T) {
	var trace []string
	cfg := testConfig(t)
	eng := &fakeEngine{trace: &trace, address: "192.0.2.9"}

	l := newTestLab(t, cfg, &fakeProvider{trace: &trace}, eng, &trace)
	if err := l.Push(context.Background(), "payload.bin", "/tmp/payload.bin"); err != nil {
		t.Fatalf("Push() unexpected error = %v", err)
	}

	want := []string{"output vm_ip", "dial 192.0.2.9", "upload payload.bin /tmp/payload.bin"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("stages = %v, want %v", trace, want)
	}
}

func TestStatusWithoutReporter(t *testing.T) {
	var trace []string
	cfg := testConfig(t)
	eng := &fakeEngine{trace: &trace}

	l := newTestLab(t, cfg, &fakeProvider{trace: &trace}, eng, &trace)
	got, err := l.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() unexpected error = %v", err)
	}
	if got != "unknown" {
		t.Errorf("Status() = %q, want unknown for backends without status support", got)
	}
}

func TestStatusWithReporter(t *testing.T) {
	var trace []string
	cfg := testConfig(t)
	eng := &fakeEngine{trace: &trace}
	p := &statusProvider{fakeProvider: fakeProvider{trace: &trace, status: "running"}}

	l := newTestLab(t, cfg, p, eng, &trace)
	got, err := l.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() unexpected error = %v", err)
	}
	if got != "running" {
		t.Errorf("Status() = %q, want running", got)
	}
}
