package view

import "taskhub/internal/domain"

type Column struct {
	Bucket domain.Bucket `json:"bucket"`
	Tasks  []domain.Task `json:"tasks"`
}

type Board struct {
	Columns []Column `json:"columns"`
}

// Group partitions tasks into the fixed board columns. Every task lands in
// exactly one column and columns keep the input order.
func Group(tasks []domain.Task) Board {
	buckets := domain.Buckets()
	pos := make(map[domain.Bucket]int, len(buckets))
	board := Board{Columns: make([]Column, len(buckets))}
	for i, b := range buckets {
		pos[b] = i
		board.Columns[i] = Column{Bucket: b, Tasks: []domain.Task{}}
	}
	for _, t := range tasks {
		i := pos[domain.BucketFor(t.Status)]
		board.Columns[i].Tasks = append(board.Columns[i].Tasks, t)
	}
	return board
}

// Column returns the tasks under b, or nil for an unknown label.
func (b Board) Column(bucket domain.Bucket) []domain.Task {
	for _, c := range b.Columns {
		if c.Bucket == bucket {
			return c.Tasks
		}
	}
	return nil
}
