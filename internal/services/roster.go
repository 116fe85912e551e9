package services

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/logger"

	"raffle/internal/models"
)

// rosterColumns is the CSV layout; a leading header row is skipped.
var rosterColumns = []string{"id", "name", "supervisor", "department", "nps", "nrpc", "refundPercent", "totalTickets"}

// LoadRosterFile reads a roster from a .json or .csv file.
func LoadRosterFile(path string) ([]models.Participant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseRosterJSON(f)
	case ".csv":
		return ParseRosterCSV(f)
	}
	return nil, fmt.Errorf("unsupported roster format %q", filepath.Ext(path))
}

// ParseRosterJSON decodes a JSON array of participants.
func ParseRosterJSON(r io.Reader) ([]models.Participant, error) {
	var participants []models.Participant
	if err := json.NewDecoder(r).Decode(&participants); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return participants, nil
}

// ParseRosterCSV reads participants from CSV rows in rosterColumns order.
// Malformed rows are logged and skipped, as the prize and participant uploads always did.
func ParseRosterCSV(r io.Reader) ([]models.Participant, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var participants []models.Participant
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster csv: %w", err)
		}

		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), rosterColumns[0]) {
			continue
		}
		if len(record) != len(rosterColumns) {
			logger.Infof("Skipping malformed roster CSV record on line %d: %v", line, record)
			continue
		}

		p, err := parseParticipant(record)
		if err != nil {
			logger.Infof("Skipping roster CSV record on line %d: %v", line, err)
			continue
		}
		participants = append(participants, p)
	}
	return participants, nil
}

func parseParticipant(record []string) (models.Participant, error) {
	var (
		p   models.Participant
		err error
	)
	if p.ID, err = strconv.Atoi(strings.TrimSpace(record[0])); err != nil {
		return p, fmt.Errorf("invalid id %q", record[0])
	}
	p.Name = strings.TrimSpace(record[1])
	p.Supervisor = strings.TrimSpace(record[2])
	p.Department = strings.TrimSpace(record[3])

	floats := []*float64{&p.NPS, &p.NRPC, &p.RefundPercent}
	for i, dst := range floats {
		raw := strings.TrimSpace(record[4+i])
		if *dst, err = strconv.ParseFloat(raw, 64); err != nil {
			return p, fmt.Errorf("invalid %s %q", rosterColumns[4+i], raw)
		}
	}
	if p.TotalTickets, err = strconv.Atoi(strings.TrimSpace(record[7])); err != nil {
		return p, fmt.Errorf("invalid totalTickets %q", record[7])
	}
	return p, nil
}

// validateRoster rejects duplicate ids and negative quotas.
func validateRoster(participants []models.Participant) error {
	seen := make(map[int]bool, len(participants))
	for _, p := range participants {
		if seen[p.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateParticipant, p.ID)
		}
		seen[p.ID] = true
		if p.TotalTickets < 0 {
			return fmt.Errorf("%w: participant %d has %d", ErrNegativeTickets, p.ID, p.TotalTickets)
		}
	}
	return nil
}
