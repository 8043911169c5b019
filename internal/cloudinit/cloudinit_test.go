package cloudinit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	out, err := Render(Data{
		Hostname:  "demo",
		Username:  "testvm",
		PublicKey: "ssh-ed25519 AAAA test",
	})
	if err != nil {
		t.Fatalf("Render() unexpected error = %v", err)
	}

	if !strings.HasPrefix(out, "#cloud-config") {
		t.Errorf("Render() output does not start with #cloud-config: %q", out)
	}
	for _, want := range []string{"hostname: demo", "name: testvm", `"ssh-ed25519 AAAA test"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user-data")

	if err := RenderFile(path, Data{Hostname: "demo", Username: "testvm", PublicKey: "KEY"}); err != nil {
		t.Fatalf("RenderFile() unexpected error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hostname: demo") {
		t.Errorf("written user-data missing hostname: %s", data)
	}
}
