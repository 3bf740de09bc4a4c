package feishu

import (
	"context"
	"net/url"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/orgsync/pkg/directory"
	"github.com/agentstation/orgsync/pkg/logging"
)

// UserStats counts what deduplication dropped.
type UserStats struct {
	// Duplicates counts users listed under more than one department.
	Duplicates int
	// MissingUserID counts listed users without a user_id.
	MissingUserID int
}

// FetchUsers lists the direct members of the root and of every department
// and deduplicates them by user_id. names resolves department ids to names
// for the extract.
func (c *Client) FetchUsers(ctx context.Context, deptIDs []string, names map[string]string, failed *atomic.Int64) ([]directory.User, UserStats, error) {
	log := logging.FromContext(ctx)

	partitions := append([]string{directory.RootID}, deptIDs...)
	slots := make([][]apiUser, len(partitions))

	g := new(errgroup.Group)
	g.SetLimit(c.workers(c.cfg.UserWorkers))
	for i, dept := range partitions {
		g.Go(func() error {
			items, err := c.listMembers(ctx, dept)
			if err != nil {
				failed.Add(1)
				log.Error().Err(err).Str("dept_id", dept).Msg("Failed to fetch department members")
				return nil
			}
			slots[i] = items
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, UserStats{}, err
	}

	var stats UserStats
	seen := make(map[string]bool)
	var users []directory.User
	for _, items := range slots {
		for _, item := range items {
			if item.UserID == "" {
				stats.MissingUserID++
				continue
			}
			if seen[item.UserID] {
				stats.Duplicates++
				continue
			}
			seen[item.UserID] = true
			users = append(users, toUser(item, names))
		}
	}
	return users, stats, nil
}

func (c *Client) listMembers(ctx context.Context, dept string) ([]apiUser, error) {
	var items []apiUser
	token := ""
	for {
		q := url.Values{
			"department_id":      {dept},
			"page_size":          {strconv.Itoa(c.cfg.PageSize)},
			"department_id_type": {"open_department_id"},
			"user_id_type":       {"user_id"},
		}
		if token != "" {
			q.Set("page_token", token)
		}

		var page userPage
		if err := c.http.Get(ctx, c.base+"/contact/v3/users/find_by_department?"+q.Encode(), &page); err != nil {
			return nil, err
		}
		items = append(items, page.Data.Items...)
		if !page.Data.HasMore || page.Data.PageToken == "" {
			return items, nil
		}
		token = page.Data.PageToken
	}
}

func toUser(item apiUser, names map[string]string) directory.User {
	deptNames := make([]string, len(item.DepartmentIDs))
	for i, id := range item.DepartmentIDs {
		deptNames[i] = names[id]
	}
	return directory.User{
		ID:              item.UserID,
		OpenID:          item.OpenID,
		UnionID:         item.UnionID,
		Name:            item.Name,
		Email:           item.EnterpriseEmail,
		Mobile:          item.Mobile,
		EmployeeNo:      item.EmployeeNo,
		JobTitle:        item.JobTitle,
		Status:          directory.ParseUserStatus(item.Status.IsFrozen, item.Status.IsResigned),
		DepartmentIDs:   item.DepartmentIDs,
		DepartmentNames: deptNames,
	}
}
