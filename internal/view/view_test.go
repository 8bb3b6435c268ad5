package view

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/domain"
	"taskhub/internal/store"
)

func day(s string) time.Time {
	d, _ := time.Parse(time.DateOnly, s)
	return d
}

func strp(s string) *string { return &s }

func boardState(t *testing.T) *store.State {
	t.Helper()
	s, err := store.New(store.Seed{
		Users: []domain.User{
			{ID: 1, Username: "zed", FullName: "Zed Zimmer"},
			{ID: 2, Username: "amy", FullName: "Amy Adams"},
		},
		Tasks: []domain.Task{
			{ID: 1, Title: "beta", DueDate: "2024-01-10", Status: domain.StatusPending, Priority: domain.PriorityUrgent, Category: "Dev"},
			{ID: 2, Title: "Alpha", DueDate: "2024-01-05", Status: domain.StatusCompleted, Priority: domain.PriorityLow, Category: "Ops"},
			{ID: 3, Title: "gamma", DueDate: "2024-02-01", Status: domain.StatusOnHold, Priority: domain.PriorityHigh, Category: "Dev"},
			{ID: 4, Title: "delta", DueDate: "2024-01-07", Status: domain.StatusInProgress, Priority: domain.PriorityMedium, Category: "Dev"},
			{ID: 5, Title: "old", DueDate: "2023-12-01", Status: domain.StatusPending, IsTrashed: true, TrashedAt: strp("2024-01-02T00:00:00Z")},
			{ID: 6, Title: "older", DueDate: "2023-11-01", Status: domain.StatusPending, IsTrashed: true, TrashedAt: strp("2024-01-03T00:00:00Z")},
		},
		Assignments: []domain.Assignment{
			{ID: 1, UserID: 1, TaskID: 1},
			{ID: 2, UserID: 2, TaskID: 3},
			{ID: 3, UserID: 1, TaskID: 3},
			{ID: 4, UserID: 2, TaskID: 4},
		},
		Tags: map[int64][]string{1: {"api"}, 3: {"api", "infra"}, 2: {"infra"}},
	})
	require.NoError(t, err)
	return s.Snapshot()
}

func TestSummarizeScenario(t *testing.T) {
	tasks := []domain.Task{
		{ID: 1, DueDate: "2024-01-10", Status: domain.StatusPending},
		{ID: 2, DueDate: "2024-01-05", Status: domain.StatusCompleted},
	}
	s := Summarize(tasks, day("2024-01-10"))
	assert.Equal(t, Summary{Overdue: 0, DueToday: 1, Completed: 1}, s)

	s = Summarize(tasks, day("2024-01-11"))
	assert.Equal(t, Summary{Overdue: 1, DueToday: 0, Completed: 1}, s)
}

func TestSummarizeUsesCalendarDateOfToday(t *testing.T) {
	tasks := []domain.Task{{ID: 1, DueDate: "2024-01-10", Status: domain.StatusCompleted}}
	late := time.Date(2024, 1, 10, 23, 59, 0, 0, time.FixedZone("w", -8*3600))
	assert.Equal(t, 1, Summarize(tasks, late).DueToday)
}

func TestPriorityBreakdownFoldsUrgent(t *testing.T) {
	b := PriorityBreakdown([]domain.Task{
		{Priority: domain.PriorityUrgent},
		{Priority: domain.PriorityHigh},
		{Priority: domain.PriorityMedium},
		{Priority: domain.PriorityLow},
		{Priority: domain.Priority("critical")},
	})
	assert.Equal(t, Breakdown{High: 2, Medium: 1, Low: 1}, b)
}

func TestUpcomingSkipsTrashedAndTruncates(t *testing.T) {
	var tasks []domain.Task
	for i, due := range []string{"2024-03-01", "2024-01-01", "2024-02-01", "2024-01-15", "2024-01-20", "2024-04-01", "2024-05-01"} {
		tasks = append(tasks, domain.Task{ID: int64(i + 1), DueDate: due})
	}
	tasks[1].IsTrashed = true
	got := Upcoming(tasks, 0)
	require.Len(t, got, DefaultShortlistSize)
	var ids []int64
	for _, task := range got {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []int64{4, 5, 3, 1, 6}, ids)
	assert.Len(t, Upcoming(tasks, 2), 2)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("all", "", " Dev ")
	require.NoError(t, err)
	assert.Nil(t, f.AssigneeID)
	assert.Nil(t, f.Category)
	require.NotNil(t, f.Tag)
	assert.Equal(t, "Dev", *f.Tag)

	f, err = ParseFilter("2", "All", "all")
	require.NoError(t, err)
	require.NotNil(t, f.AssigneeID)
	assert.Equal(t, int64(2), *f.AssigneeID)
	assert.Nil(t, f.Tag)
	require.NotNil(t, f.Category, "only lowercase all is the sentinel")
	assert.Equal(t, "All", *f.Category)

	_, err = ParseFilter("bob", "", "")
	assert.Error(t, err)
}

func TestCategoryNamedAllIsFilterable(t *testing.T) {
	s, err := store.New(store.Seed{
		Tasks: []domain.Task{
			{ID: 1, Title: "one", DueDate: "2024-01-10", Status: domain.StatusPending, Category: "All"},
			{ID: 2, Title: "two", DueDate: "2024-01-11", Status: domain.StatusPending, Category: "Dev"},
		},
	})
	require.NoError(t, err)
	st := s.Snapshot()

	f, err := ParseFilter("", "All", "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(Apply(st.Active(), st, f)))

	f, err = ParseFilter("", "all", "")
	require.NoError(t, err)
	assert.Len(t, Apply(st.Active(), st, f), 2)
}

func TestApplyIsConjunctive(t *testing.T) {
	st := boardState(t)
	uid := int64(1)
	cat := "Dev"
	tag := "infra"
	got := Apply(st.Active(), st, Filter{AssigneeID: &uid, Category: &cat, Tag: &tag})
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)

	got = Apply(st.Active(), st, Filter{})
	assert.Len(t, got, 4)
}

func ids(tasks []domain.Task) []int64 {
	out := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestSortFields(t *testing.T) {
	st := boardState(t)
	active := st.Active()

	assert.Equal(t, []int64{2, 1, 4, 3}, ids(Sort(active, st, SortTitle, Asc)))
	assert.Equal(t, []int64{2, 4, 1, 3}, ids(Sort(active, st, SortDueDate, Asc)))
	assert.Equal(t, []int64{3, 1, 4, 2}, ids(Sort(active, st, SortDueDate, Desc)))
	assert.Equal(t, []int64{1, 3, 4, 2}, ids(Sort(active, st, SortPriority, Desc)))
	// Task 2 has no assignee and sorts first; task 3's first assignee is Amy.
	assert.Equal(t, []int64{2, 3, 4, 1}, ids(Sort(active, st, SortAssignee, Asc)))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(Sort(active, st, SortNone, Asc)))
}

func TestSortDescendingKeepsTiesInInputOrder(t *testing.T) {
	tasks := []domain.Task{
		{ID: 1, Priority: domain.PriorityHigh},
		{ID: 2, Priority: domain.PriorityLow},
		{ID: 3, Priority: domain.PriorityHigh},
	}
	st := boardState(t)
	assert.Equal(t, []int64{1, 3, 2}, ids(Sort(tasks, st, SortPriority, Desc)))
	assert.Equal(t, []int64{2, 1, 3}, ids(Sort(tasks, st, SortPriority, Asc)))
}

func TestParseSort(t *testing.T) {
	f, d, err := ParseSort("Due_Date", "")
	require.NoError(t, err)
	assert.Equal(t, SortDueDate, f)
	assert.Equal(t, Asc, d)
	_, _, err = ParseSort("size", "asc")
	assert.Error(t, err)
	_, _, err = ParseSort("title", "up")
	assert.Error(t, err)
}

func TestGroupFixedColumns(t *testing.T) {
	st := boardState(t)
	b := Group(st.Active())
	require.Len(t, b.Columns, 3)
	assert.Equal(t, []int64{1, 3}, ids(b.Column(domain.BucketToDo)))
	assert.Equal(t, []int64{4}, ids(b.Column(domain.BucketInProgress)))
	assert.Equal(t, []int64{2}, ids(b.Column(domain.BucketDone)))

	empty := Group(nil)
	for _, c := range empty.Columns {
		assert.NotNil(t, c.Tasks)
		assert.Empty(t, c.Tasks)
	}
}

func TestDeriveModes(t *testing.T) {
	st := boardState(t)
	cat := "Dev"
	r := Derive(st, Params{Mode: ModeList, Filter: Filter{Category: &cat}, Sort: SortTitle, Dir: Asc})
	assert.Nil(t, r.Board)
	assert.Equal(t, []int64{1, 4, 3}, ids(r.Tasks))

	r = Derive(st, Params{Mode: ModeKanban, Filter: Filter{Category: &cat}, Sort: SortTitle})
	require.NotNil(t, r.Board)
	assert.Equal(t, []int64{1, 3}, ids(r.Board.Column(domain.BucketToDo)))
}

func TestCacheKeysOnVersionAndParams(t *testing.T) {
	s, err := store.New(store.Seed{Tasks: []domain.Task{{ID: 1, Title: "a", Status: domain.StatusPending}}})
	require.NoError(t, err)
	c, err := NewCache(8)
	require.NoError(t, err)

	p := Params{Mode: ModeList}
	first := c.Derive(s.Snapshot(), p)
	c.Derive(s.Snapshot(), p)
	assert.Equal(t, 1, c.Len())

	c.Derive(s.Snapshot(), Params{Mode: ModeKanban})
	assert.Equal(t, 2, c.Len())

	require.NoError(t, s.Update(context.Background(), func(tx *store.Tx) error {
		return tx.InsertTask(domain.Task{ID: 2, Title: "b"})
	}))
	second := c.Derive(s.Snapshot(), p)
	assert.Len(t, first.Tasks, 1)
	assert.Len(t, second.Tasks, 2)
	assert.Equal(t, 3, c.Len())
}

func TestTrashNewestFirst(t *testing.T) {
	st := boardState(t)
	assert.Equal(t, []int64{6, 5}, ids(Trash(st)))
}

func TestTeamCountsOpenTasks(t *testing.T) {
	st := boardState(t)
	team := Team(st)
	require.Len(t, team, 2)
	assert.Equal(t, int64(1), team[0].ID)
	assert.Equal(t, 2, team[0].OpenTasks)
	assert.Equal(t, 2, team[1].OpenTasks)
}

func TestCardResolvesSideTables(t *testing.T) {
	st := boardState(t)
	task, err := st.Task(3)
	require.NoError(t, err)
	c := CardOf(task, st)
	assert.Equal(t, []string{"api", "infra"}, c.Tags)
	require.Len(t, c.Assignees, 2)
	assert.Equal(t, "amy", c.Assignees[0].Username)

	task, err = st.Task(4)
	require.NoError(t, err)
	assert.Equal(t, []string{}, CardOf(task, st).Tags)
}

func TestBuildDashboardUsesActiveOnly(t *testing.T) {
	st := boardState(t)
	d := BuildDashboard(st.Active(), day("2024-01-10"), 3)
	assert.Equal(t, "2024-01-10", d.Today)
	assert.Equal(t, Summary{Overdue: 1, DueToday: 1, Completed: 1}, d.Summary)
	assert.Equal(t, Breakdown{High: 2, Medium: 1, Low: 1}, d.Breakdown)
	assert.Equal(t, []int64{2, 4, 1}, ids(d.Upcoming))
}
