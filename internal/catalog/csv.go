package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var ErrMissingNameColumn = errors.New("catalog has no Name column")
var ErrDuplicateItem = errors.New("duplicate athlete name")

// LoadFile reads a rankings CSV from disk.
func LoadFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	items, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return items, nil
}

// LoadCSV parses rows keyed by the header line. Columns are matched
// case-insensitively; anything other than Rank, Name, Team and Trend is ignored.
func LoadCSV(r io.Reader) ([]Item, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, ErrMissingNameColumn
	}

	field := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var items []Item
	seen := map[string]bool{}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		item := Item{
			Name:  field(rec, "name"),
			Team:  field(rec, "team"),
			Trend: field(rec, "trend"),
		}
		if item.Name == "" {
			continue
		}
		if raw := field(rec, "rank"); raw != "" {
			rank, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: rank %q: %w", line, raw, err)
			}
			item.Rank = rank
		}
		if seen[item.Name] {
			return nil, fmt.Errorf("line %d: %w: %s", line, ErrDuplicateItem, item.Name)
		}
		seen[item.Name] = true
		items = append(items, item)
	}
	return items, nil
}

// WriteRostersCSV exports rosters one row per athlete, teams in the given order.
func WriteRostersCSV(w io.Writer, teams []string, rosters map[string][]Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Team", "Rank", "Name", "TeamOfAthlete", "Trend"}); err != nil {
		return err
	}
	for _, team := range teams {
		for _, it := range rosters[team] {
			row := []string{team, strconv.Itoa(it.Rank), it.Name, it.Team, it.Trend}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
