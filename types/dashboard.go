package types

// ScoreBucket is one bar of the dashboard histogram.
type ScoreBucket struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// ClassDashboard summarizes the submissions of one class.
type ClassDashboard struct {
	ClassID      string        `json:"classId"`
	Total        int           `json:"total"`
	NumGraded    int           `json:"numGraded"`
	NumPending   int           `json:"numPending"`
	AverageScore float64       `json:"averageScore"`
	Histogram    []ScoreBucket `json:"histogram"`
}

var scoreBuckets = []ScoreBucket{
	{Label: "Weak (0-4.9)", Min: 0.0, Max: 4.9},
	{Label: "Average (5.0-6.4)", Min: 5.0, Max: 6.4},
	{Label: "Fair (6.5-7.9)", Min: 6.5, Max: 7.9},
	{Label: "Good (8.0-8.9)", Min: 8.0, Max: 8.9},
	{Label: "Excellent (9.0-10)", Min: 9.0, Max: 10.0},
}

// AggregateClass computes the dashboard numbers for a single class:
// graded/pending counts, the mean score over graded submissions, and a
// histogram of graded scores. Buckets with no submissions are omitted.
// A class with no graded submissions has an average of zero and an empty
// histogram.
func AggregateClass(subs []*Submission, classID string) *ClassDashboard {
	dash := &ClassDashboard{ClassID: classID, Histogram: []ScoreBucket{}}

	counts := make([]int, len(scoreBuckets))
	sum := 0.0
	for _, sub := range subs {
		if sub.ClassID != classID {
			continue
		}
		dash.Total++
		if sub.Status != StatusFieldGraded || !sub.HasScore() {
			continue
		}
		dash.NumGraded++
		sum += *sub.Score
		counts[bucketFor(*sub.Score)]++
	}
	dash.NumPending = dash.Total - dash.NumGraded

	if dash.NumGraded > 0 {
		dash.AverageScore = sum / float64(dash.NumGraded)
		for i, bucket := range scoreBuckets {
			if counts[i] > 0 {
				bucket.Count = counts[i]
				dash.Histogram = append(dash.Histogram, bucket)
			}
		}
	}

	return dash
}

func bucketFor(score float64) int {
	for i, bucket := range scoreBuckets[:len(scoreBuckets)-1] {
		if score <= bucket.Max {
			return i
		}
	}
	return len(scoreBuckets) - 1
}
