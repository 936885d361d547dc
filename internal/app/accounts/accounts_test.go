package accounts_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	tagtypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrafan/terrafan/internal/app/accounts"
	"github.com/terrafan/terrafan/internal/model"
)

func strPtr(s string) *string { return &s }

// fakeOrg serves a small fixed organization tree:
//
//	root (r-1)
//	├── account 111111111111
//	├── prod (ou-prod)
//	│   ├── account 222222222222
//	│   └── eu (ou-eu)
//	│       └── account 333333333333
//	└── dev (ou-dev)
//	    └── account 444444444444
//
// Account 555555555555 is suspended and hangs from the root.
type fakeOrg struct {
	accounts map[string][]string // parent ID -> account IDs.
	ous      map[string][]orgtypes.OrganizationalUnit
}

func newFakeOrg() *fakeOrg {
	return &fakeOrg{
		accounts: map[string][]string{
			"r-1":     {"111111111111", "555555555555"},
			"ou-prod": {"222222222222"},
			"ou-eu":   {"333333333333"},
			"ou-dev":  {"444444444444"},
		},
		ous: map[string][]orgtypes.OrganizationalUnit{
			"r-1": {
				{Id: strPtr("ou-prod"), Name: strPtr("prod")},
				{Id: strPtr("ou-dev"), Name: strPtr("dev")},
			},
			"ou-prod": {
				{Id: strPtr("ou-eu"), Name: strPtr("eu")},
			},
		},
	}
}

func (f *fakeOrg) ListAccounts(ctx context.Context, params *organizations.ListAccountsInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error) {
	all := []orgtypes.Account{
		{Id: strPtr("111111111111"), Name: strPtr("root-acc"), Email: strPtr("root@test.io"), Status: orgtypes.AccountStatusActive},
		{Id: strPtr("222222222222"), Name: strPtr("prod-acc"), Email: strPtr("prod@test.io"), Status: orgtypes.AccountStatusActive},
		{Id: strPtr("333333333333"), Name: strPtr("eu-acc"), Email: strPtr("eu@test.io"), Status: orgtypes.AccountStatusActive},
		{Id: strPtr("444444444444"), Name: strPtr("dev-acc"), Email: strPtr("dev@test.io"), Status: orgtypes.AccountStatusActive},
		{Id: strPtr("555555555555"), Name: strPtr("old-acc"), Email: strPtr("old@test.io"), Status: orgtypes.AccountStatusSuspended},
	}
	return &organizations.ListAccountsOutput{Accounts: all}, nil
}

func (f *fakeOrg) ListRoots(ctx context.Context, params *organizations.ListRootsInput, optFns ...func(*organizations.Options)) (*organizations.ListRootsOutput, error) {
	return &organizations.ListRootsOutput{Roots: []orgtypes.Root{{Id: strPtr("r-1")}}}, nil
}

func (f *fakeOrg) ListOrganizationalUnitsForParent(ctx context.Context, params *organizations.ListOrganizationalUnitsForParentInput, optFns ...func(*organizations.Options)) (*organizations.ListOrganizationalUnitsForParentOutput, error) {
	return &organizations.ListOrganizationalUnitsForParentOutput{
		OrganizationalUnits: f.ous[*params.ParentId],
	}, nil
}

func (f *fakeOrg) ListChildren(ctx context.Context, params *organizations.ListChildrenInput, optFns ...func(*organizations.Options)) (*organizations.ListChildrenOutput, error) {
	children := []orgtypes.Child{}
	switch params.ChildType {
	case orgtypes.ChildTypeOrganizationalUnit:
		for _, ou := range f.ous[*params.ParentId] {
			children = append(children, orgtypes.Child{Id: ou.Id})
		}
	case orgtypes.ChildTypeAccount:
		for _, id := range f.accounts[*params.ParentId] {
			children = append(children, orgtypes.Child{Id: strPtr(id)})
		}
	}
	return &organizations.ListChildrenOutput{Children: children}, nil
}

type fakeTags struct {
	arns []string
	err  error
}

func (f *fakeTags) GetResources(ctx context.Context, params *resourcegroupstaggingapi.GetResourcesInput, optFns ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.GetResourcesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	mappings := make([]tagtypes.ResourceTagMapping, 0, len(f.arns))
	for _, arn := range f.arns {
		arn := arn
		mappings = append(mappings, tagtypes.ResourceTagMapping{ResourceARN: &arn})
	}
	return &resourcegroupstaggingapi.GetResourcesOutput{ResourceTagMappingList: mappings}, nil
}

func accountIDs(accs []model.Account) []string {
	ids := make([]string, 0, len(accs))
	for _, a := range accs {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestServiceResolve(t *testing.T) {
	tests := map[string]struct {
		request accounts.Request
		tags    *fakeTags
		expIDs  []string
		expErr  bool
	}{
		"Without criteria all active accounts should be returned, suspended ones excluded.": {
			request: accounts.Request{},
			expIDs:  []string{"111111111111", "222222222222", "333333333333", "444444444444"},
		},

		"Explicit account IDs should select only those accounts.": {
			request: accounts.Request{AccountIDs: []string{"222222222222"}},
			expIDs:  []string{"222222222222"},
		},

		"An OU path should select its accounts and the ones of nested OUs.": {
			request: accounts.Request{OUPaths: []string{"/prod"}},
			expIDs:  []string{"222222222222", "333333333333"},
		},

		"A nested OU path should select only its subtree.": {
			request: accounts.Request{OUPaths: []string{"/prod/eu"}},
			expIDs:  []string{"333333333333"},
		},

		"The root path should select the whole organization.": {
			request: accounts.Request{OUPaths: []string{"/"}},
			expIDs:  []string{"111111111111", "222222222222", "333333333333", "444444444444"},
		},

		"An unknown OU path should fail.": {
			request: accounts.Request{OUPaths: []string{"/prod/us"}},
			expErr:  true,
		},

		"Tag filters should select the tagged accounts.": {
			request: accounts.Request{TagFilters: []model.TagFilter{{Key: "team", Values: []string{"dev"}}}},
			tags:    &fakeTags{arns: []string{"arn:aws:organizations::111111111111:account/o-xyz/444444444444"}},
			expIDs:  []string{"444444444444"},
		},

		"Criteria should be unioned.": {
			request: accounts.Request{
				AccountIDs: []string{"111111111111"},
				TagFilters: []model.TagFilter{{Key: "team", Values: []string{"dev"}}},
			},
			tags:   &fakeTags{arns: []string{"arn:aws:organizations::111111111111:account/o-xyz/444444444444"}},
			expIDs: []string{"111111111111", "444444444444"},
		},

		"Criteria matching nothing should return no accounts.": {
			request: accounts.Request{AccountIDs: []string{"999999999999"}},
			expIDs:  []string{},
		},

		"A tagging API error should fail the resolution.": {
			request: accounts.Request{TagFilters: []model.TagFilter{{Key: "team", Values: []string{"dev"}}}},
			tags:    &fakeTags{err: fmt.Errorf("throttled")},
			expErr:  true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			cfg := accounts.ServiceConfig{OrgClient: newFakeOrg()}
			if test.tags != nil {
				cfg.TagClient = test.tags
			}
			svc, err := accounts.NewService(cfg)
			require.NoError(err)

			accs, err := svc.Resolve(context.Background(), test.request)

			if test.expErr {
				assert.Error(err)
				return
			}
			require.NoError(err)
			assert.Equal(test.expIDs, accountIDs(accs))
		})
	}
}

func TestParseIDs(t *testing.T) {
	tests := map[string]struct {
		input  string
		expIDs []string
	}{
		"An empty string should parse to no IDs.": {
			input:  "",
			expIDs: []string{},
		},

		"Whitespace and empty items should be dropped.": {
			input:  " 111111111111 ,\n222222222222,, ",
			expIDs: []string{"111111111111", "222222222222"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expIDs, accounts.ParseIDs(test.input))
		})
	}
}

func TestParseTagFilters(t *testing.T) {
	tests := map[string]struct {
		input      string
		expFilters []model.TagFilter
		expErr     bool
	}{
		"An empty expression should parse to no filters.": {
			input: "",
		},

		"A single filter with multiple values should be parsed.": {
			input:      "Key=team,Values=dev,ops",
			expFilters: []model.TagFilter{{Key: "team", Values: []string{"dev", "ops"}}},
		},

		"Multiple filters should be split on semicolons.": {
			input: "Key=team,Values=dev;Key=env,Values=prod",
			expFilters: []model.TagFilter{
				{Key: "team", Values: []string{"dev"}},
				{Key: "env", Values: []string{"prod"}},
			},
		},

		"A filter without values should fail.": {
			input:  "Key=team",
			expErr: true,
		},

		"A filter without the key prefix should fail.": {
			input:  "team,Values=dev",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			filters, err := accounts.ParseTagFilters(test.input)

			if test.expErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(test.expFilters, filters)
		})
	}
}
