package aws

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"vmforge/internal/config"
	"vmforge/internal/sshkey"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.uber.org/zap"
)

var spaces = regexp.MustCompile(` +`)

type fakeRunner struct {
	missing map[string]bool
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return "", nil
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

type fakeEC2 struct {
	output *ec2.DescribeInstancesOutput
	err    error
}

func (f *fakeEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return f.output, f.err
}

func newTestProvider(keyFiles map[string]string, api *fakeEC2, credsErr error) *Provider {
	return &Provider{
		runner: &fakeRunner{missing: map[string]bool{}},
		keys: &sshkey.Finder{
			Exists: func(path string) bool {
				_, ok := keyFiles[path]
				return ok
			},
			ReadFile: func(path string) ([]byte, error) {
				content, ok := keyFiles[path]
				if !ok {
					return nil, fmt.Errorf("open %s: no such file", path)
				}
				return []byte(content), nil
			},
		},
		candidates: []string{"/home/u/.ssh/id_ed25519.pub"},
		loadConfig: func(ctx context.Context, region, profile string) (awssdk.Config, error) {
			if credsErr != nil {
				return awssdk.Config{
					Region:      region,
					Credentials: credentialsFailer{err: credsErr},
				}, nil
			}
			return awssdk.Config{
				Region:      region,
				Credentials: credentials.NewStaticCredentialsProvider("AKIATEST", "secret", ""),
			}, nil
		},
		newClient: func(cfg awssdk.Config) instanceAPI { return api },
		now:       func() time.Time { return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC) },
		log:       zap.NewNop(),
	}
}

type credentialsFailer struct {
	err error
}

func (c credentialsFailer) Retrieve(ctx context.Context) (awssdk.Credentials, error) {
	return awssdk.Credentials{}, c.err
}

func TestValidatePrerequisites(t *testing.T) {
	p := newTestProvider(nil, nil, nil)
	if err := p.ValidatePrerequisites(context.Background(), config.Source{}); err != nil {
		t.Errorf("ValidatePrerequisites() unexpected error = %v", err)
	}
}

func TestValidatePrerequisitesMissingEngine(t *testing.T) {
	p := newTestProvider(nil, nil, nil)
	p.runner = &fakeRunner{missing: map[string]bool{"tofu": true}}

	err := p.ValidatePrerequisites(context.Background(), config.Source{})
	if err == nil {
		t.Fatal("expected error for missing engine binary, got nil")
	}
	if !strings.Contains(err.Error(), `"tofu"`) {
		t.Errorf("error = %q, want mention of the missing tool", err)
	}
}

func TestValidatePrerequisitesNoCredentials(t *testing.T) {
	p := newTestProvider(nil, nil, fmt.Errorf("no providers in chain"))

	err := p.ValidatePrerequisites(context.Background(), config.Source{})
	if err == nil {
		t.Fatal("expected error when credential chain fails, got nil")
	}
	if !strings.Contains(err.Error(), "credentials") {
		t.Errorf("error = %q, want credential guidance", err)
	}
}

func TestGenerateVariables(t *testing.T) {
	p := newTestProvider(map[string]string{"/home/u/.ssh/id_ed25519.pub": "KEY-AWS\n"}, nil, nil)

	cfg := config.Source{}
	cfg.VM.Name = "demo"
	cfg.AWS.AMI = "ami-0123456789abcdef0"

	out := filepath.Join(t.TempDir(), "test.tfvars")
	if err := p.GenerateVariables(context.Background(), out, cfg); err != nil {
		t.Fatalf("GenerateVariables() unexpected error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	artifact := spaces.ReplaceAllString(string(data), " ")

	for _, want := range []string{
		`provider = "aws"`,
		`vm_name = "demo"`,
		`ssh_public_key = "KEY-AWS"`,
		`aws_region = "us-east-1"`,
		`aws_ami = "ami-0123456789abcdef0"`,
		`aws_instance_type = "t3.small"`,
	} {
		if !strings.Contains(artifact, want) {
			t.Errorf("artifact missing %q:\n%s", want, artifact)
		}
	}
}

func TestGenerateVariablesMissingAMI(t *testing.T) {
	p := newTestProvider(map[string]string{"/home/u/.ssh/id_ed25519.pub": "KEY\n"}, nil, nil)

	cfg := config.Source{}
	cfg.VM.Name = "demo"

	out := filepath.Join(t.TempDir(), "test.tfvars")
	err := p.GenerateVariables(context.Background(), out, cfg)
	if err == nil {
		t.Fatal("expected error for missing aws.ami, got nil")
	}
	if !strings.Contains(err.Error(), "aws.ami") {
		t.Errorf("error = %q, want mention of aws.ami", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("artifact was written despite missing required field")
	}
}

func TestMapInstanceType(t *testing.T) {
	tests := []struct {
		cpus   int
		memory int64
		want   types.InstanceType
	}{
		{1, 1024, types.InstanceTypeT3Micro},
		{2, 2048, types.InstanceTypeT3Small},
		{2, 4096, types.InstanceTypeT3Medium},
		{4, 8192, types.InstanceTypeT3Large},
	}

	for _, tt := range tests {
		if got := mapInstanceType(tt.cpus, tt.memory); got != tt.want {
			t.Errorf("mapInstanceType(%d, %d) = %v, want %v", tt.cpus, tt.memory, got, tt.want)
		}
	}
}

func TestStatus(t *testing.T) {
	api := &fakeEC2{
		output: &ec2.DescribeInstancesOutput{
			Reservations: []types.Reservation{
				{Instances: []types.Instance{
					{State: &types.InstanceState{Name: types.InstanceStateNameRunning}},
				}},
			},
		},
	}
	p := newTestProvider(nil, api, nil)

	cfg := config.Source{}
	cfg.VM.Name = "demo"

	state, err := p.Status(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Status() unexpected error = %v", err)
	}
	if state != "running" {
		t.Errorf("Status() = %q, want running", state)
	}
}

func TestStatusAbsent(t *testing.T) {
	p := newTestProvider(nil, &fakeEC2{output: &ec2.DescribeInstancesOutput{}}, nil)

	cfg := config.Source{}
	cfg.VM.Name = "demo"

	state, err := p.Status(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Status() unexpected error = %v", err)
	}
	if state != "absent" {
		t.Errorf("Status() = %q, want absent", state)
	}
}
