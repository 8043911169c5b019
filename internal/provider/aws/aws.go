package aws

import (
	"context"
	"fmt"
	"time"

	"vmforge/internal/config"
	"vmforge/internal/execx"
	"vmforge/internal/logging"
	"vmforge/internal/provider"
	"vmforge/internal/sshkey"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.uber.org/zap"
)

// Name is the registry name of this backend.
const Name = "aws"

const (
	defaultRegion     = "us-east-1"
	defaultMemoryMB   = 2048
	defaultCPUs       = 2
	defaultDiskGB     = 20
	defaultDataDiskGB = 10
	defaultUsername   = "testvm"
)

// instanceAPI is the slice of the EC2 client used for status queries.
type instanceAPI interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// Provider targets EC2 through the external provisioning engine. The SDK is
// only used directly for local credential-chain validation and read-only
// status queries; all resource creation goes through the engine.
type Provider struct {
	runner     execx.Runner
	keys       *sshkey.Finder
	candidates []string
	loadConfig func(ctx context.Context, region, profile string) (awssdk.Config, error)
	newClient  func(cfg awssdk.Config) instanceAPI
	now        func() time.Time
	log        *zap.Logger
}

// New creates the EC2 provider backed by the real SDK.
func New() *Provider {
	return &Provider{
		runner:     execx.Local{},
		keys:       sshkey.NewFinder(),
		candidates: sshkey.DefaultCandidates(),
		loadConfig: func(ctx context.Context, region, profile string) (awssdk.Config, error) {
			opts := []func(*awsconfig.LoadOptions) error{
				awsconfig.WithRegion(region),
			}
			if profile != "" {
				opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
			}
			return awsconfig.LoadDefaultConfig(ctx, opts...)
		},
		newClient: func(cfg awssdk.Config) instanceAPI {
			return ec2.NewFromConfig(cfg)
		},
		now: time.Now,
		log: logging.Logger(),
	}
}

// ValidatePrerequisites confirms the engine binary is installed and that the
// default AWS credential chain resolves. No API call is made; resolution only
// walks the local chain (env, shared config, SSO cache).
func (p *Provider) ValidatePrerequisites(ctx context.Context, cfg config.Source) error {
	engineBinary := cfg.Engine.Binary
	if engineBinary == "" {
		engineBinary = "tofu"
	}
	if _, err := p.runner.LookPath(engineBinary); err != nil {
		return fmt.Errorf("required tool %q not found in PATH: install OpenTofu or point engine.binary at your provisioning tool", engineBinary)
	}

	region := cfg.AWS.Region
	if region == "" {
		region = defaultRegion
	}

	sdkCfg, err := p.loadConfig(ctx, region, cfg.AWS.Profile)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %v", err)
	}
	if _, err := sdkCfg.Credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("no AWS credentials resolved: %v; configure ~/.aws/credentials, set AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY, or set aws.profile", err)
	}

	return nil
}

// GenerateVariables produces the variables artifact for EC2 resources.
func (p *Provider) GenerateVariables(ctx context.Context, outputPath string, cfg config.Source) error {
	if cfg.VM.Name == "" {
		return fmt.Errorf("required field vm.name is missing")
	}
	if cfg.AWS.AMI == "" {
		return fmt.Errorf("required field aws.ami is missing (AMIs are region-specific, pick one for your region)")
	}

	key, err := p.keys.Resolve(cfg.SSH.PublicKey, p.candidates)
	if err != nil {
		return err
	}

	region := cfg.AWS.Region
	if region == "" {
		region = defaultRegion
	}
	memory := cfg.VM.MemoryMB
	if memory == 0 {
		memory = defaultMemoryMB
	}
	cpus := cfg.VM.CPUs
	if cpus == 0 {
		cpus = defaultCPUs
	}
	disk := cfg.VM.DiskGB
	if disk == 0 {
		disk = defaultDiskGB
	}
	dataDisk := cfg.VM.DataDiskGB
	if dataDisk == 0 {
		dataDisk = defaultDataDiskGB
	}
	username := cfg.VM.Username
	if username == "" {
		username = defaultUsername
	}
	instanceType := cfg.AWS.InstanceType
	if instanceType == "" {
		instanceType = string(mapInstanceType(cpus, memory))
	}

	vars := provider.NewVars(Name)
	vars.Set("vm_name", cfg.VM.Name)
	vars.Set("vm_username", username)
	vars.SetInt("vm_disk_size", disk)
	vars.SetInt("vm_data_disk_size", dataDisk)
	vars.Set("ssh_public_key", key.PublicKey)
	vars.Set("aws_region", region)
	vars.Set("aws_ami", cfg.AWS.AMI)
	vars.Set("aws_instance_type", instanceType)
	// Audit only; nothing reads this back.
	vars.Set("generated_at", p.now().UTC().Format(time.RFC3339))

	return provider.WriteArtifact(outputPath, vars.Render())
}

// Describe reports descriptive backend info.
func (p *Provider) Describe() provider.Info {
	return provider.Info{
		Name:        Name,
		Description: "Amazon EC2 instances provisioned through the external engine",
		Details: map[string]string{
			"default_region": defaultRegion,
			"credentials":    "default AWS credential chain",
		},
	}
}

// Status reports the EC2 instance state for the configured VM name.
func (p *Provider) Status(ctx context.Context, cfg config.Source) (string, error) {
	if cfg.VM.Name == "" {
		return "", fmt.Errorf("required field vm.name is missing")
	}

	region := cfg.AWS.Region
	if region == "" {
		region = defaultRegion
	}
	sdkCfg, err := p.loadConfig(ctx, region, cfg.AWS.Profile)
	if err != nil {
		return "", fmt.Errorf("failed to load AWS configuration: %v", err)
	}

	out, err := p.newClient(sdkCfg).DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: awssdk.String("tag:Name"), Values: []string{cfg.VM.Name}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe instances: %v", err)
	}

	for _, reservation := range out.Reservations {
		for _, inst := range reservation.Instances {
			if inst.State != nil && inst.State.Name != types.InstanceStateNameTerminated {
				return string(inst.State.Name), nil
			}
		}
	}
	return "absent", nil
}

// mapInstanceType picks the smallest burstable type that covers the requested
// resources.
func mapInstanceType(cpus int, memoryMB int64) types.InstanceType {
	if cpus <= 1 && memoryMB <= 1024 {
		return types.InstanceTypeT3Micro
	}
	if cpus <= 2 && memoryMB <= 2048 {
		return types.InstanceTypeT3Small
	}
	if cpus <= 2 && memoryMB <= 4096 {
		return types.InstanceTypeT3Medium
	}
	return types.InstanceTypeT3Large
}
