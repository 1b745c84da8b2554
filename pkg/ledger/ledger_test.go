package ledger

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestParseImport_YAML(t *testing.T) {
	doc := `
records:
  - id: bill-1
    kind: bill
    amount: "1000.50"
    currency: aed
    date: 2024-01-10
    dueDate: 2024-02-10
    reference: INV-1
  - id: pay-1
    kind: payment
    amount: "1000.50"
    date: 2024-01-12
    createdAt: 2024-01-12T08:00:00Z
`
	records, err := ParseImport([]byte(doc), "records.yaml")
	if err != nil {
		t.Fatalf("ParseImport() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	bill := records[0]
	if bill.Kind != KindBill || bill.Amount.String() != "1000.5" || bill.Currency != "AED" {
		t.Errorf("bill = %+v", bill)
	}
	if bill.DueDate == nil || !bill.DueDate.Equal(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DueDate = %v", bill.DueDate)
	}
	if !records[1].CreatedAt.Equal(time.Date(2024, 1, 12, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v", records[1].CreatedAt)
	}
}

func TestParseImport_JSON(t *testing.T) {
	doc := `{"records":[{"kind":"receipt","amount":"20","date":"2024-03-01","reference":"R-1"}]}`
	records, err := ParseImport([]byte(doc), "records.json")
	if err != nil {
		t.Fatalf("ParseImport() error = %v", err)
	}
	if len(records) != 1 || records[0].Kind != KindReceipt || records[0].Reference != "R-1" {
		t.Errorf("records = %+v", records)
	}
}

func TestParseImport_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown kind", `records: [{kind: refund, amount: "1", date: 2024-01-01}]`, "kind"},
		{"bad amount", `records: [{kind: bill, amount: "ten", date: 2024-01-01}]`, "amount"},
		{"bad date", `records: [{kind: bill, amount: "1", date: 01/02/2024}]`, "date"},
		{"bad currency", `records: [{kind: bill, amount: "1", date: 2024-01-01, currency: DIRHAM}]`, "currency"},
		{"not yaml", `records: [`, "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseImport([]byte(tt.doc), "records.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestRecordOpen(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"unsettled bill", Record{Kind: KindBill}, true},
		{"settled bill", Record{Kind: KindBill, Settled: true, LinkedRecordID: "p"}, false},
		{"unlinked payment", Record{Kind: KindPayment}, true},
		{"linked receipt", Record{Kind: KindReceipt, LinkedRecordID: "i"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Open(); got != tt.want {
				t.Errorf("Open() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizedCurrency(t *testing.T) {
	r := Record{Currency: " usd "}
	if got := r.NormalizedCurrency("aed"); got != "USD" {
		t.Errorf("NormalizedCurrency() = %q", got)
	}
	r.Currency = ""
	if got := r.NormalizedCurrency("aed"); got != "AED" {
		t.Errorf("NormalizedCurrency() default = %q", got)
	}
}

func TestStoredSettingsResolve(t *testing.T) {
	defaults := Settings{MinConfidenceScore: 0.6, AutoMatchEnabled: false}
	if got := (StoredSettings{}).Resolve(defaults); got != defaults {
		t.Errorf("empty Resolve() = %+v", got)
	}

	minScore, on := 0.8, true
	got := StoredSettings{MinConfidenceScore: &minScore, AutoMatchEnabled: &on}.Resolve(defaults)
	if got.MinConfidenceScore != 0.8 || !got.AutoMatchEnabled {
		t.Errorf("Resolve() = %+v", got)
	}
}

func TestErrors(t *testing.T) {
	wrapped := fmt.Errorf("source %q: %w", "b1", ErrAlreadySettled)
	if !IsConflict(wrapped) {
		t.Error("wrapped ErrAlreadySettled should be a conflict")
	}
	if IsConflict(ErrNotFound) {
		t.Error("ErrNotFound is not a conflict")
	}

	cause := errors.New("disk full")
	err := &StorageError{Backend: "sqlite3", Op: "save_record", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("StorageError should unwrap to its cause")
	}
	if err.Error() != "sqlite3: save_record: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
}
