package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Columns of a fraud-data file, in the order they must appear.
const (
	colEventTime = iota
	colEventID
	colFidCode
	colContraIndicators
	colContraScore
	colRequestID
	colClientIPAddress
	colPID

	columnCount
)

// Header is the column header producers are expected to write.
var Header = []string{
	"Event Time", "Event ID", "FID code", "Contra Indicators",
	"Contra Score", "Request ID", "Client IP Address", "PID",
}

// RawRow is a data line split into its columns. Timestamps and indicator
// lists are still text; the Service normalizes them.
type RawRow struct {
	EventTime        string
	EventID          string
	FidCode          string
	ContraIndicators string
	ContraScore      int
	RequestID        string
	ClientIPAddress  string
	PID              string
}

// ParseRow maps one CSV record to a RawRow. Errors are always *RowError.
func ParseRow(line int, record []string) (RawRow, error) {
	if len(record) < columnCount {
		// Report the first column that is missing, as an index would.
		return RawRow{}, newRowError(line,
			fmt.Errorf("index out of range [%d] with length %d", len(record), len(record)))
	}

	score, err := parseContraScore(record[colContraScore])
	if err != nil {
		return RawRow{}, newRowError(line, err)
	}

	return RawRow{
		EventTime:        record[colEventTime],
		EventID:          record[colEventID],
		FidCode:          record[colFidCode],
		ContraIndicators: record[colContraIndicators],
		ContraScore:      score,
		RequestID:        record[colRequestID],
		ClientIPAddress:  record[colClientIPAddress],
		PID:              record[colPID],
	}, nil
}

// parseContraScore reads a signed base-10 score; blank means 0. The score
// column is a 32-bit integer.
func parseContraScore(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("contra score %q out of range", s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid contra score %q", s)
	}
	return int(n), nil
}
