package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContains(t *testing.T) {
	table := []struct {
		text     string
		needle   string
		expected bool
	}{
		{text: "鸭血粉丝汤(新街口店)", needle: "鸭血粉丝", expected: true},
		{text: "老鸭粉丝", needle: "鸭血粉丝", expected: false},
		{text: "KFC Xinjiekou", needle: "kfc", expected: false},
		{text: "anything", needle: "", expected: false},
	}
	for _, row := range table {
		require.Equal(t, row.expected, Contains(row.text, row.needle), row.text)
	}
}

func TestContainsAll(t *testing.T) {
	require.True(t, ContainsAll("南京市$玄武区$$鸭血粉丝(珠江路店)", "鸭血粉丝", "南京"))
	require.False(t, ContainsAll("苏州市$$鸭血粉丝", "鸭血粉丝", "南京"))
	require.False(t, ContainsAll("南京"))
}

func TestCollapseSpace(t *testing.T) {
	require.Equal(t, "月售 12份", CollapseSpace("\n   月售   12份 \n"))
}

func TestClosest(t *testing.T) {
	best, score := Closest("鸭血粉丝", []string{"肯德基", "鸭血粉丝汤", "麦当劳"})
	require.Equal(t, "鸭血粉丝汤", best)
	require.Greater(t, score, 0.5)

	best, score = Closest("x", nil)
	require.Equal(t, "", best)
	require.Zero(t, score)
}
