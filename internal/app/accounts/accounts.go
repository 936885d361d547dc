package accounts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	tagtypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"

	"github.com/terrafan/terrafan/internal/log"
	"github.com/terrafan/terrafan/internal/model"
)

// OrgClient is the subset of the AWS Organizations API the resolver needs.
// The real SDK client satisfies it, tests can mock it.
type OrgClient interface {
	organizations.ListAccountsAPIClient
	organizations.ListRootsAPIClient
	organizations.ListOrganizationalUnitsForParentAPIClient
	organizations.ListChildrenAPIClient
}

// TagClient is the subset of the Resource Groups Tagging API the resolver needs.
type TagClient interface {
	resourcegroupstaggingapi.GetResourcesAPIClient
}

// ServiceConfig is the configuration for the accounts service.
type ServiceConfig struct {
	OrgClient OrgClient
	TagClient TagClient
	Logger    log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.OrgClient == nil {
		return fmt.Errorf("organizations client is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Accounts"})
	return nil
}

// Service resolves organization accounts by explicit IDs, OU paths or tag
// filters. Pure fan-out pagination, no concurrency.
type Service struct {
	org    OrgClient
	tags   TagClient
	logger log.Logger
}

// NewService creates a new accounts service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		org:    cfg.OrgClient,
		tags:   cfg.TagClient,
		logger: cfg.Logger,
	}, nil
}

// Request is an account resolution request. With no criteria set, all active
// accounts are returned.
type Request struct {
	AccountIDs []string
	OUPaths    []string
	TagFilters []model.TagFilter
}

func (r Request) empty() bool {
	return len(r.AccountIDs) == 0 && len(r.OUPaths) == 0 && len(r.TagFilters) == 0
}

// Resolve returns the active accounts selected by the request criteria, sorted
// by account ID. Criteria are unioned.
func (s *Service) Resolve(ctx context.Context, req Request) ([]model.Account, error) {
	active, err := s.listActiveAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list accounts: %w", err)
	}

	if req.empty() {
		return active, nil
	}

	selected := map[string]struct{}{}
	for _, id := range req.AccountIDs {
		selected[id] = struct{}{}
	}

	if len(req.OUPaths) > 0 {
		ids, err := s.accountsFromOUs(ctx, req.OUPaths)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			selected[id] = struct{}{}
		}
	}

	if len(req.TagFilters) > 0 {
		if s.tags == nil {
			return nil, fmt.Errorf("tag filters require a tagging client: %w", model.ErrNotValid)
		}
		ids, err := s.accountsFromTags(ctx, req.TagFilters)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			selected[id] = struct{}{}
		}
	}

	filtered := make([]model.Account, 0, len(selected))
	for _, account := range active {
		if _, ok := selected[account.ID]; ok {
			filtered = append(filtered, account)
		}
	}

	return filtered, nil
}

func (s *Service) listActiveAccounts(ctx context.Context) ([]model.Account, error) {
	accounts := []model.Account{}
	p := organizations.NewListAccountsPaginator(s.org, &organizations.ListAccountsInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, account := range page.Accounts {
			if account.Status != orgtypes.AccountStatusActive {
				continue
			}
			acc := model.Account{
				ID:     aws(account.Id),
				Name:   aws(account.Name),
				Email:  aws(account.Email),
				Status: string(account.Status),
			}
			if account.JoinedTimestamp != nil {
				acc.JoinedAt = *account.JoinedTimestamp
			}
			accounts = append(accounts, acc)
		}
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	return accounts, nil
}

// accountsFromOUs resolves each OU path from the organization root and walks
// it recursively. "/" selects the whole organization.
func (s *Service) accountsFromOUs(ctx context.Context, paths []string) ([]string, error) {
	rootID, err := s.rootID(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get organization root: %w", err)
	}

	ids := []string{}
	for _, path := range paths {
		parentID := rootID
		if strings.TrimSpace(path) != "/" {
			parentID, err = s.resolveOUPath(ctx, rootID, path)
			if err != nil {
				return nil, err
			}
		}

		ouIDs, err := s.walkOU(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("could not walk OU %s: %w", path, err)
		}
		ids = append(ids, ouIDs...)
	}

	return ids, nil
}

func (s *Service) rootID(ctx context.Context) (string, error) {
	p := organizations.NewListRootsPaginator(s.org, &organizations.ListRootsInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return "", err
		}
		if len(page.Roots) > 0 {
			return aws(page.Roots[0].Id), nil
		}
	}

	return "", fmt.Errorf("organization has no root: %w", model.ErrNotFound)
}

// resolveOUPath walks the /a/b path segments from the root, matching each
// segment against the OU names under the current parent.
func (s *Service) resolveOUPath(ctx context.Context, rootID, path string) (string, error) {
	parentID := rootID

segments:
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		p := organizations.NewListOrganizationalUnitsForParentPaginator(s.org, &organizations.ListOrganizationalUnitsForParentInput{
			ParentId: &parentID,
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return "", err
			}
			for _, ou := range page.OrganizationalUnits {
				if aws(ou.Name) == segment {
					parentID = aws(ou.Id)
					continue segments
				}
			}
		}
		return "", fmt.Errorf("OU %q of path %q: %w", segment, path, model.ErrNotFound)
	}

	return parentID, nil
}

// walkOU returns the account IDs under an OU, descending into child OUs.
func (s *Service) walkOU(ctx context.Context, parentID string) ([]string, error) {
	ids := []string{}

	children, err := s.listChildren(ctx, parentID, orgtypes.ChildTypeOrganizationalUnit)
	if err != nil {
		return nil, err
	}
	for _, childID := range children {
		childIDs, err := s.walkOU(ctx, childID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, childIDs...)
	}

	accounts, err := s.listChildren(ctx, parentID, orgtypes.ChildTypeAccount)
	if err != nil {
		return nil, err
	}
	ids = append(ids, accounts...)

	return ids, nil
}

func (s *Service) listChildren(ctx context.Context, parentID string, childType orgtypes.ChildType) ([]string, error) {
	ids := []string{}
	p := organizations.NewListChildrenPaginator(s.org, &organizations.ListChildrenInput{
		ParentId:  &parentID,
		ChildType: childType,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, child := range page.Children {
			ids = append(ids, aws(child.Id))
		}
	}

	return ids, nil
}

// accountsFromTags resolves account IDs through the tagging API. The account
// ID is the last segment of the account resource ARN.
func (s *Service) accountsFromTags(ctx context.Context, filters []model.TagFilter) ([]string, error) {
	tagFilters := make([]tagtypes.TagFilter, 0, len(filters))
	for _, f := range filters {
		f := f
		tagFilters = append(tagFilters, tagtypes.TagFilter{Key: &f.Key, Values: f.Values})
	}

	ids := []string{}
	p := resourcegroupstaggingapi.NewGetResourcesPaginator(s.tags, &resourcegroupstaggingapi.GetResourcesInput{
		TagFilters:          tagFilters,
		ResourceTypeFilters: []string{"organizations"},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not get tagged resources: %w", err)
		}
		for _, resource := range page.ResourceTagMappingList {
			arn := aws(resource.ResourceARN)
			parts := strings.Split(arn, "/")
			ids = append(ids, parts[len(parts)-1])
		}
	}

	return ids, nil
}

func aws(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
