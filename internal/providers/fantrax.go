package providers

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/conosleague/roster-optimizer/internal/models"
)

// Fantrax league export column headers.
const (
	colID           = "ID"
	colPlayer       = "Player"
	colTeam         = "Team"
	colPosition     = "Position"
	colStatus       = "Status"
	colRosterStatus = "Roster Status"
	colFPts         = "FPts"
)

var requiredColumns = []string{colID, colPlayer, colTeam, colPosition, colStatus, colRosterStatus, colFPts}

// ParseError reports a structurally unusable CSV upload.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid league CSV at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("invalid league CSV: %s", e.Reason)
}

// LeaguePool groups an upload's players by the fantasy team that owns them.
// Rows without a Status value are free agents and are not part of any pool.
type LeaguePool struct {
	Teams      map[string][]models.Player
	PlayerRows int
	Skipped    int
}

// TeamIDs returns the fantasy team codes in ascending order.
func (lp *LeaguePool) TeamIDs() []string {
	ids := make([]string, 0, len(lp.Teams))
	for id := range lp.Teams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ParseLeagueCSV reads a Fantrax player export. Columns are located by
// header name, so column order in the export does not matter. A missing
// required column fails the whole upload; a malformed FPts cell does not,
// it parses as zero the way the league site renders it.
func ParseLeagueCSV(r io.Reader) (*LeaguePool, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Reason: "file is empty"}
	}
	if err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("missing required column %q", name)}
		}
	}

	pool := &LeaguePool{Teams: make(map[string][]models.Player)}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &ParseError{Line: line, Reason: err.Error()}
		}

		field := func(name string) string {
			i := index[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		status := field(colStatus)
		if status == "" {
			// Free agent, no fantasy team to optimize for.
			pool.Skipped++
			continue
		}

		positions, err := models.ParsePositions(field(colPosition))
		if err != nil {
			return nil, &ParseError{Line: line, Reason: err.Error()}
		}
		if len(positions) == 0 {
			return nil, &ParseError{Line: line, Reason: "empty position cell"}
		}

		fpts := 0.0
		if raw := field(colFPts); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				logrus.WithFields(logrus.Fields{"line": line, "fpts": raw}).
					Warn("Unparseable FPts value, treating as 0")
			} else {
				fpts = parsed
			}
		}

		player := models.Player{
			ID:           field(colID),
			Name:         field(colPlayer),
			NHLTeam:      field(colTeam),
			Positions:    positions,
			RosterStatus: models.RosterStatus(field(colRosterStatus)),
			FPts:         fpts,
		}
		if player.ID == "" {
			return nil, &ParseError{Line: line, Reason: "missing player ID"}
		}

		pool.Teams[status] = append(pool.Teams[status], player)
		pool.PlayerRows++
	}

	if len(pool.Teams) == 0 {
		return nil, &ParseError{Reason: "no rostered players found"}
	}
	return pool, nil
}
