package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DateLayout is the date format of import documents.
const DateLayout = "2006-01-02"

// ImportDocument is the wire form of a batch of records.
type ImportDocument struct {
	Records []ImportRecord `yaml:"records" json:"records" validate:"dive"`
}

// ImportRecord is the wire form of a record. Amount is a decimal string so
// no precision is lost.
type ImportRecord struct {
	ID           string `yaml:"id" json:"id"`
	Kind         string `yaml:"kind" json:"kind" validate:"required,oneof=bill invoice payment receipt"`
	Amount       string `yaml:"amount" json:"amount" validate:"required,number"`
	Currency     string `yaml:"currency,omitempty" json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Date         string `yaml:"date" json:"date" validate:"required,datetime=2006-01-02"`
	DueDate      string `yaml:"dueDate,omitempty" json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Reference    string `yaml:"reference,omitempty" json:"reference,omitempty"`
	Counterparty string `yaml:"counterparty,omitempty" json:"counterparty,omitempty"`
	CreatedAt    string `yaml:"createdAt,omitempty" json:"createdAt,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

var importValidator = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return v
}()

// ParseImport decodes and validates an import document. JSON is used for
// .json paths and YAML otherwise.
func ParseImport(data []byte, path string) ([]Record, error) {
	var doc ImportDocument
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse import document: %w", err)
	}

	if err := importValidator.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag())
			}
			return nil, fmt.Errorf("invalid import document: %s", strings.Join(msgs, "; "))
		}
		return nil, fmt.Errorf("invalid import document: %w", err)
	}

	out := make([]Record, 0, len(doc.Records))
	for i, ir := range doc.Records {
		r, err := ir.record()
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (ir ImportRecord) record() (Record, error) {
	amount, err := decimal.NewFromString(ir.Amount)
	if err != nil {
		return Record{}, fmt.Errorf("amount: %w", err)
	}
	date, err := time.Parse(DateLayout, ir.Date)
	if err != nil {
		return Record{}, fmt.Errorf("date: %w", err)
	}

	r := Record{
		ID:           ir.ID,
		Kind:         Kind(ir.Kind),
		Amount:       amount,
		Currency:     strings.ToUpper(ir.Currency),
		Date:         date,
		Reference:    ir.Reference,
		Counterparty: ir.Counterparty,
	}
	if ir.DueDate != "" {
		due, err := time.Parse(DateLayout, ir.DueDate)
		if err != nil {
			return Record{}, fmt.Errorf("dueDate: %w", err)
		}
		r.DueDate = &due
	}
	if ir.CreatedAt != "" {
		created, err := time.Parse(time.RFC3339, ir.CreatedAt)
		if err != nil {
			return Record{}, fmt.Errorf("createdAt: %w", err)
		}
		r.CreatedAt = created.UTC()
	}
	return r, nil
}
