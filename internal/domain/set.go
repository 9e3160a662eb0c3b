package domain

import (
	"encoding/json"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Set is a sorted slice without duplicates.
type Set[T constraints.Ordered] []T

func NewSet[T constraints.Ordered](items ...T) Set[T] {
	elements := slices.Clone(items)
	slices.Sort(elements)
	return slices.Compact(elements)
}

func (s Set[T]) Contains(item T) bool {
	_, found := slices.BinarySearch(s, item)
	return found
}

func (s Set[T]) Insert(item T) Set[T] {
	i, found := slices.BinarySearch(s, item)
	if found {
		return s
	}
	return slices.Insert(s, i, item)
}

func (s *Set[T]) UnmarshalJSON(data []byte) (err error) {
	var elements []T
	err = json.Unmarshal(data, &elements)
	if err != nil {
		return
	}
	*s = NewSet(elements...)
	return
}
