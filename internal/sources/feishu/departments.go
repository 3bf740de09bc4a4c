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

// FetchDepartments walks the department tree level by level. Every
// department of a level is expanded concurrently; a partition that fails is
// logged and counted in failed without cancelling its siblings.
func (c *Client) FetchDepartments(ctx context.Context, failed *atomic.Int64) ([]directory.Department, error) {
	log := logging.FromContext(ctx)

	var all []directory.Department
	names := map[string]string{directory.RootID: ""}
	parents := []string{directory.RootID}
	seen := map[string]bool{directory.RootID: true}

	for level := 1; len(parents) > 0; level++ {
		slots := make([][]apiDepartment, len(parents))

		g := new(errgroup.Group)
		g.SetLimit(c.workers(c.cfg.DepartmentWorkers))
		for i, parent := range parents {
			g.Go(func() error {
				items, err := c.listChildren(ctx, parent)
				if err != nil {
					failed.Add(1)
					log.Error().Err(err).Str("parent_id", parent).Msg("Failed to fetch child departments")
					return nil
				}
				slots[i] = items
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next []string
		for _, items := range slots {
			for _, item := range items {
				if item.OpenDepartmentID == "" || seen[item.OpenDepartmentID] {
					continue
				}
				seen[item.OpenDepartmentID] = true
				names[item.OpenDepartmentID] = item.Name

				parentID := item.ParentDepartmentID
				if parentID == "" {
					parentID = directory.RootID
				}
				all = append(all, directory.Department{
					ID:          item.OpenDepartmentID,
					Name:        item.Name,
					ParentID:    parentID,
					ParentName:  names[parentID],
					Level:       level,
					MemberCount: item.MemberCount,
				})
				next = append(next, item.OpenDepartmentID)
			}
		}

		log.Debug().Int("level", level).Int("departments", len(next)).Msg("Fetched department level")
		parents = next
	}

	return all, nil
}

func (c *Client) listChildren(ctx context.Context, parent string) ([]apiDepartment, error) {
	var items []apiDepartment
	token := ""
	for {
		q := url.Values{
			"parent_department_id": {parent},
			"page_size":            {strconv.Itoa(c.cfg.PageSize)},
			"department_id_type":   {"open_department_id"},
		}
		if token != "" {
			q.Set("page_token", token)
		}

		var page departmentPage
		if err := c.http.Get(ctx, c.base+"/contact/v3/departments?"+q.Encode(), &page); err != nil {
			return nil, err
		}
		items = append(items, page.Data.Items...)
		if !page.Data.HasMore || page.Data.PageToken == "" {
			return items, nil
		}
		token = page.Data.PageToken
	}
}

func (c *Client) workers(n int) int {
	if c.cfg.Sequential {
		return 1
	}
	return n
}
