package output

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/orgsync/pkg/differ"
	pkgsync "github.com/agentstation/orgsync/pkg/sync"
)

var title = cases.Title(language.English)

// label turns a snake_case key into a column label.
func label(key string) string {
	return title.String(strings.ReplaceAll(key, "_", " "))
}

// ExtractToTableData renders extraction statistics as a key/value table.
func ExtractToTableData(stats pkgsync.ExtractStats) Data {
	rows := [][]string{
		{label("departments"), strconv.Itoa(stats.Departments)},
		{label("users"), strconv.Itoa(stats.Users)},
		{label("expected_users"), strconv.Itoa(stats.ExpectedUsers)},
		{label("duplicates"), strconv.Itoa(stats.Duplicates)},
		{label("missing_user_id"), strconv.Itoa(stats.MissingUserID)},
		{label("excluded"), strconv.Itoa(stats.Excluded)},
		{label("rate_limit_retries"), strconv.Itoa(stats.RateLimitRetries)},
	}
	return Data{
		Headers:         []string{"Statistic", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// ResultToTableData renders per-entity change counts.
func ResultToTableData(r *pkgsync.Result) Data {
	data := Data{
		Headers:         []string{"Entity", "Created", "Updated", "Disabled", "Skipped", "Failed"},
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight},
	}
	if d := r.Departments; d != nil {
		data.Rows = append(data.Rows, counts(differ.EntityDepartment, d.Created, d.Updated, d.Disabled, 0, d.Failed))
	}
	if u := r.Users; u != nil {
		data.Rows = append(data.Rows, counts(differ.EntityUser, u.Created, u.Updated, u.Disabled, u.Skipped, u.Failed))
	}
	return data
}

func counts(entity differ.Entity, n ...int) []string {
	row := []string{label(string(entity) + "s")}
	for _, v := range n {
		row = append(row, strconv.Itoa(v))
	}
	return row
}

// ChangesToTableData lists individual changes.
func ChangesToTableData(cs differ.Changeset) Data {
	data := Data{Headers: []string{"Change", "Name", "Target ID", "Details"}}
	add := func(changes []differ.Change) {
		for _, c := range changes {
			details := c.Describe()
			if c.Error != "" {
				details = c.Error
			}
			id := ""
			if c.TargetID != 0 {
				id = strconv.FormatInt(c.TargetID, 10)
			}
			data.Rows = append(data.Rows, []string{string(c.Type), c.Label(), id, details})
		}
	}
	add(cs.Created)
	add(cs.Updated)
	add(cs.Disabled)
	add(cs.Failed)
	return data
}
