// Package applicant defines the single-row applicant record fed to the loan
// models, together with the field catalogue used to build, range-check and
// render it.
package applicant

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field names as the models were trained on them.
const (
	NoOfDependents         = "no_of_dependents"
	Education              = "education"
	SelfEmployed           = "self_employed"
	IncomeAnnum            = "income_annum"
	LoanAmount             = "loan_amount"
	LoanTerm               = "loan_term"
	CibilScore             = "cibil_score"
	ResidentialAssetsValue = "residential_assets_value"
	CommercialAssetsValue  = "commercial_assets_value"
	LuxuryAssetsValue      = "luxury_assets_value"
	BankAssetValue         = "bank_asset_value"
)

// Record is a flat mapping from field name to value. Values are float64,
// int, string or nil; nil marks a missing value.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Kind describes how a field is entered and parsed.
type Kind int

const (
	Integer Kind = iota
	Number
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Number:
		return "number"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Field describes one input of the applicant form.
type Field struct {
	Name    string
	Label   string
	Kind    Kind
	Min     float64
	Max     float64 // zero means unbounded
	Step    float64
	Default any
	Options []string
	Slider  bool
}

// Fields lists the applicant inputs in form order.
var Fields = []Field{
	{Name: NoOfDependents, Label: "No. of Dependents", Kind: Integer, Min: 0, Max: 10, Step: 1, Default: 2, Slider: true},
	{Name: Education, Label: "Education", Kind: Categorical, Default: "Graduate", Options: []string{"Graduate", "Not Graduate"}},
	{Name: SelfEmployed, Label: "Self Employed", Kind: Categorical, Default: "Yes", Options: []string{"Yes", "No"}},
	{Name: IncomeAnnum, Label: "Annual Income", Kind: Number, Min: 0, Step: 50000, Default: 500000.0},
	{Name: LoanAmount, Label: "Loan Amount Requested", Kind: Number, Min: 0, Step: 50000, Default: 100000.0},
	{Name: LoanTerm, Label: "Loan Term (months)", Kind: Integer, Min: 6, Max: 360, Step: 1, Default: 60, Slider: true},
	{Name: CibilScore, Label: "CIBIL Score", Kind: Integer, Min: 300, Max: 900, Step: 1, Default: 650, Slider: true},
	{Name: ResidentialAssetsValue, Label: "Residential Assets Value", Kind: Number, Min: 0, Max: 100000000, Step: 1, Default: 500000.0},
	{Name: CommercialAssetsValue, Label: "Commercial Assets Value", Kind: Number, Min: 0, Max: 100000000, Step: 1, Default: 200000.0},
	{Name: LuxuryAssetsValue, Label: "Luxury Assets Value", Kind: Number, Min: 0, Max: 100000000, Step: 1, Default: 100000.0},
	{Name: BankAssetValue, Label: "Bank Asset Value", Kind: Number, Min: 0, Max: 100000000, Step: 1, Default: 300000.0},
}

// Lookup returns the field definition for name.
func Lookup(name string) (Field, bool) {
	for _, f := range Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the field names in form order.
func Names() []string {
	names := make([]string, len(Fields))
	for i, f := range Fields {
		names[i] = f.Name
	}
	return names
}

// Sample returns the fixed applicant used by the command-line runner.
func Sample() Record {
	return Record{
		NoOfDependents:         2,
		Education:              "Graduate",
		SelfEmployed:           "No",
		IncomeAnnum:            850000.0,
		LoanAmount:             250000.0,
		LoanTerm:               60,
		CibilScore:             750,
		ResidentialAssetsValue: 1200000.0,
		CommercialAssetsValue:  400000.0,
		LuxuryAssetsValue:      150000.0,
		BankAssetValue:         300000.0,
	}
}

// Defaults returns a record holding every field's form default.
func Defaults() Record {
	r := make(Record, len(Fields))
	for _, f := range Fields {
		r[f.Name] = f.Default
	}
	return r
}

// Parse converts raw form input into a typed value and checks it against the
// field's range or options.
func (f Field) Parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%s is required", f.Label)
	}

	switch f.Kind {
	case Categorical:
		for _, opt := range f.Options {
			if raw == opt {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("%s must be one of %s", f.Label, strings.Join(f.Options, ", "))
	case Integer:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a whole number", f.Label)
		}
		if err := f.checkRange(float64(v)); err != nil {
			return nil, err
		}
		return v, nil
	case Number:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s must be a number", f.Label)
		}
		if err := f.checkRange(v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%s has unsupported kind %s", f.Label, f.Kind)
	}
}

func (f Field) checkRange(v float64) error {
	if v < f.Min {
		return fmt.Errorf("%s must be at least %s", f.Label, formatBound(f.Min))
	}
	if f.Max != 0 && v > f.Max {
		return fmt.Errorf("%s must be at most %s", f.Label, formatBound(f.Max))
	}
	return nil
}

// FormatValue renders a value the way form inputs expect it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
