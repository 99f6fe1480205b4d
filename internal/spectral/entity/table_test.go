package entity

import "testing"

func testTable() SpectralTable {
	return SpectralTable{
		IDs:           []int64{0, 1, 2, 3},
		TimeMS:        []float64{0, 10, 20, 30},
		ParticleCount: []float64{1, 2, 3, 4},
		Channels: [][]int64{
			{1, 0, 2, 0},
			{0, 5, 0, 7},
		},
	}
}

func TestFilterTimeKeepsOriginalIDs(t *testing.T) {
	start, end := 10.0, 20.0
	got := testTable().FilterTime(&start, &end)

	if got.Rows() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.Rows())
	}
	if got.IDs[0] != 1 || got.IDs[1] != 2 {
		t.Fatalf("expected original ids, got %v", got.IDs)
	}
	if got.Channels[1][0] != 5 {
		t.Fatalf("unexpected channel data: %v", got.Channels)
	}
}

func TestFilterTimeBoundsAreInclusive(t *testing.T) {
	start, end := 0.0, 30.0
	got := testTable().FilterTime(&start, &end)
	if got.Rows() != 4 {
		t.Fatalf("expected all rows, got %d", got.Rows())
	}
}

func TestFilterTimeOpenBounds(t *testing.T) {
	table := testTable()

	if got := table.FilterTime(nil, nil); got.Rows() != 4 {
		t.Fatalf("expected unfiltered view, got %d rows", got.Rows())
	}

	end := 15.0
	if got := table.FilterTime(nil, &end); got.Rows() != 2 {
		t.Fatalf("expected 2 rows below 15, got %d", got.Rows())
	}

	start := 15.0
	if got := table.FilterTime(&start, nil); got.Rows() != 2 {
		t.Fatalf("expected 2 rows above 15, got %d", got.Rows())
	}
}

func TestTimeRange(t *testing.T) {
	min, max, ok := testTable().TimeRange()
	if !ok || min != 0 || max != 30 {
		t.Fatalf("unexpected range: min=%v max=%v ok=%v", min, max, ok)
	}

	if _, _, ok := (SpectralTable{}).TimeRange(); ok {
		t.Fatal("expected ok=false for empty table")
	}
}

func TestRowTotalAndChannelSum(t *testing.T) {
	table := testTable()

	if got := table.RowTotal(3); got != 7 {
		t.Fatalf("expected row total 7, got %d", got)
	}
	if got := table.ChannelSum(0); got != 3 {
		t.Fatalf("expected channel sum 3, got %d", got)
	}
}
