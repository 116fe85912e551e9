package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseRosterCSV(t *testing.T) {
	input := `id,name,supervisor,department,nps,nrpc,refundPercent,totalTickets
1,Alice,Maria,Sales,92.5,88,2.1,12
2,Bob,Maria,Support,81,90,4.0,7
x,Broken,Maria,Support,81,90,4.0,7
3,Short row
4,Dana,Ravi,Sales,70,80,6.5,3
`
	participants, err := ParseRosterCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if len(participants) != 3 {
		t.Fatalf("Expected 3 participants, got %d", len(participants))
	}
	alice := participants[0]
	if alice.ID != 1 || alice.Name != "Alice" || alice.NPS != 92.5 || alice.RefundPercent != 2.1 || alice.TotalTickets != 12 {
		t.Errorf("Unexpected participant: %+v", alice)
	}
	if participants[2].ID != 4 {
		t.Errorf("Expected last participant to be 4, got %d", participants[2].ID)
	}
}

func TestParseRosterJSON(t *testing.T) {
	input := `[{"id":7,"name":"Gina","supervisor":"Ravi","department":"Billing","nps":85,"nrpc":91,"refundPercent":3.2,"totalTickets":9}]`
	participants, err := ParseRosterJSON(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if len(participants) != 1 || participants[0].TotalTickets != 9 || participants[0].Department != "Billing" {
		t.Errorf("Unexpected participants: %+v", participants)
	}

	if _, err := ParseRosterJSON(strings.NewReader(`{"id":1}`)); err == nil {
		t.Error("Expected an error for a non-array roster")
	}
}

func TestLoadRosterFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "guides.json")
	if err := os.WriteFile(jsonPath, []byte(`[{"id":1,"name":"A","totalTickets":2}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	participants, err := LoadRosterFile(jsonPath)
	if err != nil || len(participants) != 1 {
		t.Fatalf("Expected 1 participant, got %v, %v", participants, err)
	}

	csvPath := filepath.Join(dir, "guides.csv")
	if err := os.WriteFile(csvPath, []byte("1,A,S,D,1,2,3,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	participants, err = LoadRosterFile(csvPath)
	if err != nil || len(participants) != 1 || participants[0].TotalTickets != 4 {
		t.Fatalf("Expected 1 participant with 4 tickets, got %v, %v", participants, err)
	}

	if _, err := LoadRosterFile(filepath.Join(dir, "guides.xlsx")); err == nil {
		t.Error("Expected an error for a missing file")
	}
	txtPath := filepath.Join(dir, "guides.txt")
	os.WriteFile(txtPath, nil, 0o644)
	if _, err := LoadRosterFile(txtPath); err == nil {
		t.Error("Expected an error for an unsupported format")
	}
}

func TestValidateRoster(t *testing.T) {
	if err := validateRoster(testRoster()); err != nil {
		t.Errorf("Expected valid roster, got %v", err)
	}
	roster := append(testRoster(), testRoster()[0])
	if err := validateRoster(roster); !errors.Is(err, ErrDuplicateParticipant) {
		t.Errorf("Expected ErrDuplicateParticipant, got %v", err)
	}
}
