package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/civicpulse/engagement-platform/internal/model"
)

// ImportVotersCSV loads the voter roll from an election-roll CSV export and
// returns the number of records loaded. The header row names the columns;
// rows with an empty EPIC number are skipped.
func (s *MemoryStore) ImportVotersCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open voter CSV: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	loaded := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return loaded, fmt.Errorf("failed to read CSV row: %w", err)
		}

		voterID := strings.ToUpper(field(row, "epicNumber"))
		if voterID == "" {
			continue
		}

		assembly := field(row, "asmblyName")
		district := field(row, "districtValue")

		s.AddVoter(model.VoterRecord{
			VoterID:        voterID,
			Name:           field(row, "applicantFirstName"),
			Age:            atoi(field(row, "age_x")),
			Gender:         field(row, "gender_x"),
			RelationName:   field(row, "relationName"),
			Area:           assembly + ", " + district,
			District:       district,
			AssemblyName:   assembly,
			PartNumber:     atoi(field(row, "partNumber")),
			ParliamentName: field(row, "prlmntName"),
		})
		loaded++
	}

	return loaded, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
