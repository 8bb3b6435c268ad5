package view

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"taskhub/internal/domain"
	"taskhub/internal/store"
)

type Mode string

const (
	ModeList   Mode = "list"
	ModeKanban Mode = "kanban"
)

// Params is the full presentation state a derived view depends on.
type Params struct {
	Mode   Mode
	Filter Filter
	Sort   SortField
	Dir    Direction
}

func (p Params) key(version uint64) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s", version, p.Mode, p.Filter.key(), p.Sort, p.Dir)
}

// Result holds Tasks in list mode and Board in kanban mode.
type Result struct {
	Tasks []domain.Task
	Board *Board
}

// Derive runs filter then sort for lists, or filter then group for the board.
// Grouping ignores the sort selection.
func Derive(st *store.State, p Params) Result {
	filtered := Apply(st.Active(), st, p.Filter)
	if p.Mode == ModeKanban {
		b := Group(filtered)
		return Result{Board: &b}
	}
	return Result{Tasks: Sort(filtered, st, p.Sort, p.Dir)}
}

// Cache memoizes Derive on (store version, params). Cached results are shared
// between callers and must not be modified.
type Cache struct {
	lru *lru.Cache[string, Result]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = 128
	}
	c, err := lru.New[string, Result](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

func (c *Cache) Derive(st *store.State, p Params) Result {
	k := p.key(st.Version)
	if r, ok := c.lru.Get(k); ok {
		return r
	}
	r := Derive(st, p)
	c.lru.Add(k, r)
	return r
}

func (c *Cache) Len() int {
	return c.lru.Len()
}
