package functional

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, Map([]int{1, 2, 3}, strconv.Itoa))
	assert.Equal(t, []string{}, Map([]int{}, strconv.Itoa))

	indexed := MapWithIndex([]string{"a", "b"}, func(s string, i int) string { return s + strconv.Itoa(i) })
	assert.Equal(t, []string{"a0", "b1"}, indexed)
}

func TestFilter(t *testing.T) {
	even := func(x int) bool { return x%2 == 0 }

	tests := []struct {
		name string
		in   []int
		want []int
	}{
		{name: "some", in: []int{1, 2, 3, 4}, want: []int{2, 4}},
		{name: "none", in: []int{1, 3}, want: []int{}},
		{name: "nil", in: nil, want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.in, even)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFind(t *testing.T) {
	v, ok := Find([]string{"ETH", "WBTC"}, func(s string) bool { return s == "WBTC" })
	assert.True(t, ok)
	assert.Equal(t, "WBTC", v)

	v, ok = Find([]string{"ETH"}, func(s string) bool { return s == "DAI" })
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestDeDup(t *testing.T) {
	type rec struct {
		id   int
		name string
	}

	in := []rec{{1, "a"}, {2, "b"}, {1, "c"}, {3, "d"}, {2, "e"}}
	got := DeDup(in, func(r rec) int { return r.id })

	assert.Equal(t, []rec{{1, "a"}, {2, "b"}, {3, "d"}}, got)
	assert.Equal(t, []int{}, DeDup([]int(nil), func(x int) int { return x }))
}

func TestReduceAndGroupBy(t *testing.T) {
	words := []string{"eth", "wbtc", "dai", "link"}

	total := Reduce(words, 0, func(acc int, w string) int { return acc + len(w) })
	assert.Equal(t, 14, total)

	byLen := GroupBy(words, func(w string) int { return len(w) })
	assert.Equal(t, map[int][]string{3: {"eth", "dai"}, 4: {"wbtc", "link"}}, byLen)
}

func TestEachSuccess(t *testing.T) {
	boom := errors.New("boom")

	var seen []int
	err := EachSuccess([]int{1, 2, 3}, func(x int) error {
		seen = append(seen, x)
		if x == 2 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2}, seen)
	assert.NoError(t, EachSuccess([]int{}, func(int) error { return boom }))
}
