package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/terrafan/terrafan/internal/app/accounts"
	"github.com/terrafan/terrafan/internal/printer"
)

const (
	managementAccountIDParam    = "master_account_id"
	crossAccountAccessRoleParam = "cross_account_access_role"
)

type AccountsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	accountIDs string
	ouPaths    string
	tagFilters string
	output     string
}

// NewAccountsCommand returns the accounts command.
func NewAccountsCommand(rootCmd *RootCommand, app *kingpin.Application) *AccountsCommand {
	c := &AccountsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("accounts", "Resolve organization accounts by IDs, OU paths or tags.")
	c.Cmd.Flag("account-ids", "Comma separated account IDs.").Envar("TERRAFAN_TARGET_ACCOUNTS").StringVar(&c.accountIDs)
	c.Cmd.Flag("ou-paths", "Comma separated OU paths (/ selects the whole organization).").Envar("TERRAFAN_TARGET_OUS").StringVar(&c.ouPaths)
	c.Cmd.Flag("tag-filters", "Tag filters as Key=k,Values=v1,v2;Key=...").Envar("TERRAFAN_TARGET_TAGS").StringVar(&c.tagFilters)
	c.Cmd.Flag("output", "Output file, - for stdout.").Short('o').Default("target_accounts.json").StringVar(&c.output)

	return c
}

func (c AccountsCommand) Name() string { return c.Cmd.FullCommand() }

func (c AccountsCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	tagFilters, err := accounts.ParseTagFilters(c.tagFilters)
	if err != nil {
		return fmt.Errorf("invalid --tag-filters value: %w", err)
	}

	orgClient, tagClient, err := newOrganizationClients(ctx)
	if err != nil {
		return fmt.Errorf("could not create AWS clients: %w", err)
	}

	svc, err := accounts.NewService(accounts.ServiceConfig{
		OrgClient: orgClient,
		TagClient: tagClient,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	var ouPaths []string
	for _, path := range strings.Split(c.ouPaths, ",") {
		if path = strings.TrimSpace(path); path != "" {
			ouPaths = append(ouPaths, path)
		}
	}

	accs, err := svc.Resolve(ctx, accounts.Request{
		AccountIDs: accounts.ParseIDs(c.accountIDs),
		OUPaths:    ouPaths,
		TagFilters: tagFilters,
	})
	if err != nil {
		return fmt.Errorf("could not resolve accounts: %w", err)
	}

	var out io.Writer = c.rootCmd.Stdout
	if c.output != "-" {
		f, err := os.Create(c.output)
		if err != nil {
			return fmt.Errorf("could not create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := printer.NewJSONPrinter(out).PrintAccounts(accs); err != nil {
		return fmt.Errorf("could not write accounts: %w", err)
	}

	logger.Infof("Resolved %d accounts", len(accs))

	return nil
}

// newOrganizationClients builds the Organizations and tagging clients assuming
// the readonly cross account role of the management account. The management
// account ID and the role name come from SSM parameters.
func newOrganizationClients(ctx context.Context) (accounts.OrgClient, accounts.TagClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("could not load AWS configuration: %w", err)
	}

	ssmClient := ssm.NewFromConfig(cfg)
	managementAccountID, err := ssmParameter(ctx, ssmClient, managementAccountIDParam)
	if err != nil {
		return nil, nil, err
	}
	accessRole, err := ssmParameter(ctx, ssmClient, crossAccountAccessRoleParam)
	if err != nil {
		return nil, nil, err
	}

	roleARN := fmt.Sprintf("arn:%s:iam::%s:role/%s-readonly", partitionFor(cfg.Region), managementAccountID, accessRole)
	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = "terrafan-accounts"
		o.Duration = 15 * time.Minute
	})

	assumedCfg := cfg.Copy()
	assumedCfg.Credentials = awssdk.NewCredentialsCache(provider)

	orgClient := organizations.NewFromConfig(assumedCfg)
	// The tagging API for organization resources only answers in the
	// organizations home region.
	tagClient := resourcegroupstaggingapi.NewFromConfig(assumedCfg, func(o *resourcegroupstaggingapi.Options) {
		o.Region = organizationAPIRegion(cfg.Region)
	})

	return orgClient, tagClient, nil
}

func ssmParameter(ctx context.Context, client *ssm.Client, name string) (string, error) {
	resp, err := client.GetParameter(ctx, &ssm.GetParameterInput{Name: &name})
	if err != nil {
		return "", fmt.Errorf("could not get SSM parameter %q: %w", name, err)
	}

	return *resp.Parameter.Value, nil
}

func partitionFor(region string) string {
	switch {
	case strings.HasPrefix(region, "us-gov-"):
		return "aws-us-gov"
	case strings.HasPrefix(region, "cn-"):
		return "aws-cn"
	default:
		return "aws"
	}
}

func organizationAPIRegion(region string) string {
	switch partitionFor(region) {
	case "aws-us-gov":
		return "us-gov-west-1"
	case "aws-cn":
		return "cn-northwest-1"
	default:
		return "us-east-1"
	}
}
