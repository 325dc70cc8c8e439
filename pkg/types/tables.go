package types

// Default output table names.
const (
	LineStopsTable   = "line_stops"
	StopDetailsTable = "stop_details"
)

// Output column names for the line_stops table.
var LineStopColumns = []string{"line_number", "stop_name", "stop_order", "lat", "lng"}

// Output column names for the stop_details table.
var StopDetailColumns = []string{"stop_id", "arrival_time", "lat", "lng"}

// LineStop associates a line with one of the stops it visits.
type LineStop struct {
	LineNumber string  `json:"line_number"`
	StopName   string  `json:"stop_name"`
	StopOrder  int64   `json:"stop_order"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// StopDetail is the geocoding of one stop together with its earliest
// scheduled arrival.
type StopDetail struct {
	StopID      string  `json:"stop_id"`
	ArrivalTime string  `json:"arrival_time"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// Tables is the result of one derivation.
type Tables struct {
	LineStops   []LineStop
	StopDetails []StopDetail
}

// LineStopsRowSet converts the line_stops rows into a RowSet.
func (t *Tables) LineStopsRowSet() *RowSet {
	rows := make([][]any, 0, len(t.LineStops))
	for _, ls := range t.LineStops {
		rows = append(rows, []any{ls.LineNumber, ls.StopName, ls.StopOrder, ls.Lat, ls.Lng})
	}
	return NewRowSet(LineStopColumns, rows)
}

// StopDetailsRowSet converts the stop_details rows into a RowSet.
func (t *Tables) StopDetailsRowSet() *RowSet {
	rows := make([][]any, 0, len(t.StopDetails))
	for _, sd := range t.StopDetails {
		rows = append(rows, []any{sd.StopID, sd.ArrivalTime, sd.Lat, sd.Lng})
	}
	return NewRowSet(StopDetailColumns, rows)
}
