package tracker

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/schema"
	"golang.org/x/oauth2"
)

// StatusLabelPrefix marks the labels used to carry an item's workflow status.
const StatusLabelPrefix = "status: "

// GitHub reads items from GitHub Issues and records status as a label.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

var _ contract.Tracker = &GitHub{} // Compile-time check

// NewGitHub creates a tracker for repo ("owner/name"). Without a token requests are anonymous.
func NewGitHub(ctx context.Context, repo, token string) (*GitHub, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("tracker repo must be owner/name, got %q", repo)
	}
	var client *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	} else {
		client = github.NewClient(nil)
	}
	return &GitHub{client: client, owner: owner, repo: name}, nil
}

// SetBaseURL points the client at another API root, such as GitHub Enterprise.
func (g *GitHub) SetBaseURL(raw string) error {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	g.client.BaseURL = u
	return nil
}

// FetchItems implements the Tracker interface.
func (g *GitHub) FetchItems(ctx context.Context, ids []string) []schema.Item {
	var items []schema.Item
	for _, id := range ids {
		number, err := strconv.Atoi(strings.TrimPrefix(id, "#"))
		if err != nil {
			contract.LogWarn(fmt.Sprintf("Skipping item %s", id), fmt.Errorf("not an issue number"))
			continue
		}
		issue, _, err := g.client.Issues.Get(ctx, g.owner, g.repo, number)
		if err != nil {
			contract.LogWarn(fmt.Sprintf("Failed to fetch issue #%d", number), err)
			continue
		}
		items = append(items, issueToItem(issue))
	}
	return items
}

// ListOpenItems implements the Tracker interface. Pull requests are skipped.
func (g *GitHub) ListOpenItems(ctx context.Context, limit int) []schema.Item {
	if limit <= 0 {
		limit = contract.DefaultListLimit
	}
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: min(limit, 100)},
	}
	var items []schema.Item
	for len(items) < limit {
		issues, resp, err := g.client.Issues.ListByRepo(ctx, g.owner, g.repo, opts)
		if err != nil {
			contract.LogWarn("Failed to list open issues", err)
			break
		}
		for _, issue := range issues {
			if issue.IsPullRequest() || len(items) >= limit {
				continue
			}
			items = append(items, issueToItem(issue))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return items
}

// UpdateItemStatus implements the Tracker interface. The status becomes a
// "status: <name>" label replacing any earlier status label.
func (g *GitHub) UpdateItemStatus(ctx context.Context, id string, status string) bool {
	number, err := strconv.Atoi(strings.TrimPrefix(id, "#"))
	if err != nil {
		return false
	}
	issue, _, err := g.client.Issues.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		contract.LogWarn(fmt.Sprintf("Failed to fetch issue #%d", number), err)
		return false
	}
	want := StatusLabelPrefix + status
	for _, label := range issue.Labels {
		name := label.GetName()
		if strings.HasPrefix(name, StatusLabelPrefix) && name != want {
			if _, err := g.client.Issues.RemoveLabelForIssue(ctx, g.owner, g.repo, number, name); err != nil {
				contract.LogWarn(fmt.Sprintf("Failed to remove label %q from #%d", name, number), err)
			}
		}
	}
	if _, _, err := g.client.Issues.AddLabelsToIssue(ctx, g.owner, g.repo, number, []string{want}); err != nil {
		contract.LogWarn(fmt.Sprintf("Failed to label #%d", number), err)
		return false
	}
	return true
}

func issueToItem(issue *github.Issue) schema.Item {
	item := schema.Item{
		ID:          strconv.Itoa(issue.GetNumber()),
		Title:       issue.GetTitle(),
		Description: issue.GetBody(),
		State:       issue.GetState(),
		Assignee:    issue.GetAssignee().GetLogin(),
	}
	for _, label := range issue.Labels {
		name := label.GetName()
		if p, ok := priorityFromLabel(name); ok {
			item.Priority = p
		}
		if status, ok := strings.CutPrefix(name, StatusLabelPrefix); ok {
			item.State = status
		}
		item.Labels = append(item.Labels, name)
	}
	return item
}

// priorityFromLabel reads labels such as "P1", "p2" or "priority: 3".
func priorityFromLabel(name string) (int, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	var digits string
	switch {
	case strings.HasPrefix(lower, "priority"):
		digits = strings.TrimLeft(strings.TrimPrefix(lower, "priority"), ":/- p")
	case len(lower) == 2 && lower[0] == 'p':
		digits = lower[1:]
	default:
		return 0, false
	}
	p, err := strconv.Atoi(digits)
	if err != nil || p < 0 || p > 4 {
		return 0, false
	}
	return p, true
}
