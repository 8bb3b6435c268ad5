package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/domain"
)

func TestBucketTableRoundTrip(t *testing.T) {
	cases := []struct {
		status domain.Status
		bucket domain.Bucket
	}{
		{domain.StatusPending, domain.BucketToDo},
		{domain.StatusOnHold, domain.BucketToDo},
		{domain.StatusInProgress, domain.BucketInProgress},
		{domain.StatusCompleted, domain.BucketDone},
		{domain.Status("archived"), domain.BucketToDo},
	}
	for _, c := range cases {
		assert.Equal(t, c.bucket, domain.BucketFor(c.status), "status %s", c.status)
	}
	assert.Equal(t, domain.StatusPending, domain.StatusFor(domain.BucketToDo))
	assert.Equal(t, domain.StatusInProgress, domain.StatusFor(domain.BucketInProgress))
	assert.Equal(t, domain.StatusCompleted, domain.StatusFor(domain.BucketDone))
	assert.Equal(t, domain.StatusPending, domain.StatusFor(domain.Bucket("Backlog")))
	assert.Equal(t, []domain.Bucket{domain.BucketToDo, domain.BucketInProgress, domain.BucketDone}, domain.Buckets())
}

func TestParseStatusAcceptsLegacySpelling(t *testing.T) {
	s, err := domain.ParseStatus("in progress")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, s)
	s, err = domain.ParseStatus("On Hold")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnHold, s)
	_, err = domain.ParseStatus("done")
	assert.Error(t, err)
}

func TestPriorityRankAndDisplay(t *testing.T) {
	assert.Equal(t, 4, domain.PriorityUrgent.Rank())
	assert.Equal(t, 1, domain.PriorityLow.Rank())
	assert.Equal(t, 0, domain.Priority("critical").Rank())
	assert.Equal(t, domain.PriorityHigh, domain.PriorityUrgent.DisplayBucket())
	assert.Equal(t, domain.PriorityMedium, domain.PriorityMedium.DisplayBucket())
}

func TestTagSet(t *testing.T) {
	var s domain.TagSet
	s, err := s.Add("backend")
	require.NoError(t, err)
	s, err = s.Add("Backend")
	require.NoError(t, err, "matching is case-sensitive")

	_, err = s.Add("backend")
	assert.True(t, errors.Is(err, domain.ErrDuplicateTag))
	_, err = s.Add("   ")
	assert.True(t, errors.Is(err, domain.ErrEmptyTag))

	assert.Equal(t, domain.TagSet{"backend", "Backend"}, s)
	assert.Equal(t, domain.TagSet{"Backend"}, s.Remove("backend"))
	assert.Equal(t, s, s.Remove("missing"))
	assert.Equal(t, domain.TagSet{"Backend"}, s.Remove("  backend\t"), "remove trims like add")
}

func TestParseDate(t *testing.T) {
	d, ok := domain.ParseDate("2024-01-10")
	require.True(t, ok)
	assert.Equal(t, "2024-01-10", domain.DateOf(d))
	d, ok = domain.ParseDate("2024-01-10T23:30:00Z")
	require.True(t, ok)
	assert.Equal(t, "2024-01-10", domain.DateOf(d))
	_, ok = domain.ParseDate("next week")
	assert.False(t, ok)
}
