package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateClass(t *testing.T) {
	subs := []*Submission{
		{ID: "s1", ClassID: "c1", Status: StatusFieldGraded, Score: score(9.5)},
		{ID: "s2", ClassID: "c1", Status: StatusFieldGraded, Score: score(8.0)},
		{ID: "s3", ClassID: "c1", Status: StatusFieldGraded, Score: score(4.0)},
		{ID: "s4", ClassID: "c1", Status: StatusFieldPending},
		{ID: "s5", ClassID: "c2", Status: StatusFieldGraded, Score: score(10)},
	}

	dash := AggregateClass(subs, "c1")
	assert.Equal(t, "c1", dash.ClassID)
	assert.Equal(t, 4, dash.Total)
	assert.Equal(t, 3, dash.NumGraded)
	assert.Equal(t, 1, dash.NumPending)
	assert.InDelta(t, (9.5+8.0+4.0)/3, dash.AverageScore, 0.0001)

	// only buckets with submissions appear
	require.Len(t, dash.Histogram, 3)
	assert.Equal(t, "Weak (0-4.9)", dash.Histogram[0].Label)
	assert.Equal(t, 1, dash.Histogram[0].Count)
	assert.Equal(t, "Good (8.0-8.9)", dash.Histogram[1].Label)
	assert.Equal(t, 1, dash.Histogram[1].Count)
	assert.Equal(t, "Excellent (9.0-10)", dash.Histogram[2].Label)
	assert.Equal(t, 1, dash.Histogram[2].Count)
}

func TestAggregateClassEmpty(t *testing.T) {
	subs := []*Submission{
		{ID: "s1", ClassID: "c1", Status: StatusFieldPending},
		// a graded status with no score does not count as graded
		{ID: "s2", ClassID: "c1", Status: StatusFieldGraded},
	}

	dash := AggregateClass(subs, "c1")
	assert.Equal(t, 2, dash.Total)
	assert.Equal(t, 0, dash.NumGraded)
	assert.Equal(t, 2, dash.NumPending)
	assert.Equal(t, 0.0, dash.AverageScore)
	assert.Empty(t, dash.Histogram)
}

func TestBucketBoundaries(t *testing.T) {
	for _, tc := range []struct {
		score float64
		label string
	}{
		{0, "Weak (0-4.9)"},
		{4.9, "Weak (0-4.9)"},
		{5.0, "Average (5.0-6.4)"},
		{6.5, "Fair (6.5-7.9)"},
		{8.0, "Good (8.0-8.9)"},
		{9.0, "Excellent (9.0-10)"},
		{10, "Excellent (9.0-10)"},
	} {
		subs := []*Submission{{ID: "s", ClassID: "c", Status: StatusFieldGraded, Score: score(tc.score)}}
		dash := AggregateClass(subs, "c")
		require.Len(t, dash.Histogram, 1, "score %v", tc.score)
		assert.Equal(t, tc.label, dash.Histogram[0].Label, "score %v", tc.score)
	}
}
