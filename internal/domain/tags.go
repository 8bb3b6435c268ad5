package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyTag     = errors.New("tag is empty")
	ErrDuplicateTag = errors.New("tag already present")
)

// TagSet is an insertion-ordered set of tags. Matching is exact and case-sensitive.
type TagSet []string

// Add appends tag, rejecting blank input and exact duplicates.
func (s TagSet) Add(tag string) (TagSet, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return s, ErrEmptyTag
	}
	if s.Has(tag) {
		return s, fmt.Errorf("%w: %s", ErrDuplicateTag, tag)
	}
	out := make(TagSet, len(s), len(s)+1)
	copy(out, s)
	return append(out, tag), nil
}

// Remove drops tag if present. Removing an absent tag is a no-op.
func (s TagSet) Remove(tag string) TagSet {
	tag = strings.TrimSpace(tag)
	out := make(TagSet, 0, len(s))
	for _, t := range s {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}

func (s TagSet) Has(tag string) bool {
	for _, t := range s {
		if t == tag {
			return true
		}
	}
	return false
}

// NewTagSet builds a set from raw input, applying the same rules as Add.
func NewTagSet(tags []string) (TagSet, error) {
	var s TagSet
	for _, t := range tags {
		var err error
		if s, err = s.Add(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}
