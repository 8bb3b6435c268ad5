package domain

// Bucket is a Kanban column label.
type Bucket string

const (
	BucketToDo       Bucket = "To Do"
	BucketInProgress Bucket = "In Progress"
	BucketDone       Bucket = "Done"
)

// bucketTable is the single source for both directions of the
// status <-> bucket mapping. The first status listed for a bucket is the one
// a drop onto that bucket produces.
var bucketTable = []struct {
	bucket   Bucket
	statuses []Status
}{
	{BucketToDo, []Status{StatusPending, StatusOnHold}},
	{BucketInProgress, []Status{StatusInProgress}},
	{BucketDone, []Status{StatusCompleted}},
}

// Buckets returns the board columns in display order.
func Buckets() []Bucket {
	out := make([]Bucket, 0, len(bucketTable))
	for _, row := range bucketTable {
		out = append(out, row.bucket)
	}
	return out
}

// BucketFor maps a status to its column. Unknown statuses land in To Do.
func BucketFor(s Status) Bucket {
	for _, row := range bucketTable {
		for _, st := range row.statuses {
			if st == s {
				return row.bucket
			}
		}
	}
	return BucketToDo
}

// StatusFor maps a dropped-on column back to a status. Unknown labels map to
// pending. The mapping is lossy: on_hold never comes back out.
func StatusFor(b Bucket) Status {
	for _, row := range bucketTable {
		if row.bucket == b {
			return row.statuses[0]
		}
	}
	return StatusPending
}
