package types

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGTFSTime(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00:00", want: 0},
		{in: "8:05:09", want: 8*3600 + 5*60 + 9},
		{in: "08:05:09", want: 8*3600 + 5*60 + 9},
		{in: "25:30:00", want: 25*3600 + 30*60},
		{in: " 07:00:00 ", want: 7 * 3600},
		{in: "7:00", wantErr: true},
		{in: "07:60:00", wantErr: true},
		{in: "aa:00:00", wantErr: true},
		{in: "07::00", wantErr: true},
		{in: "-1:00:00", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGTFSTime(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFeedKeyCacheKey(t *testing.T) {
	paths := FeedPaths{Routes: "r.txt", Trips: "t.txt", StopTimes: "st.txt", Stops: "s.txt"}

	plain := FeedKey{Paths: paths}
	assert.Equal(t, `"r.txt"|"t.txt"|"st.txt"|"s.txt"`, plain.CacheKey())

	withPrints := FeedKey{Paths: paths, Fingerprints: [4]string{"a", "b", "c", "d"}}
	assert.Equal(t, `"r.txt"|"t.txt"|"st.txt"|"s.txt"|"a"|"b"|"c"|"d"`, withPrints.CacheKey())
	assert.NotEqual(t, plain, withPrints)
}

func TestFeedKeyCacheKeySeparatorInPath(t *testing.T) {
	a := FeedKey{Paths: FeedPaths{Routes: "a|b", Trips: "c", StopTimes: "st.txt", Stops: "s.txt"}}
	b := FeedKey{Paths: FeedPaths{Routes: "a", Trips: "b|c", StopTimes: "st.txt", Stops: "s.txt"}}
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())

	quoted := FeedKey{Paths: FeedPaths{Routes: `x"|"y`, Trips: "t", StopTimes: "st", Stops: "s"}}
	split := FeedKey{Paths: FeedPaths{Routes: "x", Trips: "y", StopTimes: "t", Stops: "st"}}
	assert.NotEqual(t, quoted.CacheKey(), split.CacheKey())
}

func TestInferColumnType(t *testing.T) {
	assert.Equal(t, ColumnInteger, InferColumnType(int64(1)))
	assert.Equal(t, ColumnInteger, InferColumnType(3))
	assert.Equal(t, ColumnFloat, InferColumnType(1.5))
	assert.Equal(t, ColumnBoolean, InferColumnType(true))
	assert.Equal(t, ColumnTimestamp, InferColumnType(time.Now()))
	assert.Equal(t, ColumnText, InferColumnType("x"))
	assert.Equal(t, ColumnText, InferColumnType([]byte("x")))
}

func TestNewRowSetSkipsLeadingNulls(t *testing.T) {
	rs := NewRowSet([]string{"a", "b", "c"}, [][]any{
		{nil, "x", nil},
		{int64(2), "y", nil},
	})
	require.Len(t, rs.Columns, 3)
	assert.Equal(t, ColumnInteger, rs.Columns[0].Type)
	assert.Equal(t, ColumnText, rs.Columns[1].Type)
	assert.Equal(t, ColumnText, rs.Columns[2].Type, "all-null column defaults to TEXT")
	assert.Equal(t, []string{"a", "b", "c"}, rs.ColumnNames())
}

func TestTablesRowSets(t *testing.T) {
	tables := &Tables{
		LineStops:   []LineStop{{LineNumber: "5", StopName: "Main St", StopOrder: 1, Lat: 32, Lng: 34}},
		StopDetails: []StopDetail{{StopID: "S1", ArrivalTime: "08:00:00", Lat: 32, Lng: 34}},
	}

	ls := tables.LineStopsRowSet()
	assert.Equal(t, LineStopColumns, ls.ColumnNames())
	assert.Equal(t, []ColumnType{ColumnText, ColumnText, ColumnInteger, ColumnFloat, ColumnFloat},
		[]ColumnType{ls.Columns[0].Type, ls.Columns[1].Type, ls.Columns[2].Type, ls.Columns[3].Type, ls.Columns[4].Type})
	assert.Equal(t, [][]any{{"5", "Main St", int64(1), 32.0, 34.0}}, ls.Rows)

	sd := tables.StopDetailsRowSet()
	assert.Equal(t, StopDetailColumns, sd.ColumnNames())
	assert.Equal(t, [][]any{{"S1", "08:00:00", 32.0, 34.0}}, sd.Rows)
}

func TestTypedErrorsClassify(t *testing.T) {
	pe := &ParseError{File: "routes.txt", Err: fs.ErrNotExist}
	assert.True(t, errors.Is(pe, ErrParse))
	assert.True(t, errors.Is(pe, fs.ErrNotExist))
	assert.False(t, errors.Is(pe, ErrFormat))

	missing := &ParseError{File: "stops.txt", Column: "stop_lat"}
	assert.True(t, errors.Is(missing, ErrParse))
	assert.Contains(t, missing.Error(), `"stop_lat"`)

	fe := &FormatError{File: "stop_times.txt", Line: 3, Column: "stop_sequence", Value: "x", Err: errors.New("bad")}
	assert.True(t, errors.Is(fe, ErrFormat))
	assert.Contains(t, fe.Error(), "stop_times.txt:3")

	je := &JoinError{Step: "trips-routes", Reason: "nil feed"}
	assert.True(t, errors.Is(je, ErrJoin))

	var target *FormatError
	assert.True(t, errors.As(error(fe), &target))
}
