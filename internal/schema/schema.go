package schema

// FieldType is the declared type of a schema field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeDate   FieldType = "date"
)

// Value formats understood by the validator.
const (
	FormatAlphanumeric = "alphanumeric"
	FormatDateUS       = "MM/DD/YYYY"
)

// Field describes one recognized document field.
type Field struct {
	Name          string
	Type          FieldType
	Required      bool
	Format        string
	AllowedValues []string
}

// Registry is the immutable set of recognized fields, in declaration order.
// Safe for concurrent use; construct once at startup and share.
type Registry struct {
	fields []Field
	index  map[string]int
}

func NewRegistry(fields ...Field) *Registry {
	r := &Registry{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	copy(r.fields, fields)
	for i, f := range r.fields {
		r.index[f.Name] = i
	}
	return r
}

// Get returns the schema entry for a field name.
func (r *Registry) Get(name string) (Field, bool) {
	i, ok := r.index[name]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

// Has reports whether name is a canonical field.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// FieldNames returns the field names in declaration order.
func (r *Registry) FieldNames() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns a copy of the schema entries in declaration order.
func (r *Registry) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r *Registry) Len() int { return len(r.fields) }

// Canonical field names.
const (
	FieldFirstName      = "first_name"
	FieldLastName       = "last_name"
	FieldLicenseNumber  = "license_number"
	FieldDateOfBirth    = "date_of_birth"
	FieldExpirationDate = "expiration_date"
	FieldStreetAddress  = "street_address"
	FieldCity           = "city"
	FieldState          = "state"
	FieldZipCode        = "zip_code"
	FieldSex            = "sex"
)

// StateAbbreviations holds the 50 US state codes accepted for the state field.
var StateAbbreviations = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

// IsState reports whether s is one of the 50 state abbreviations.
func IsState(s string) bool {
	for _, a := range StateAbbreviations {
		if s == a {
			return true
		}
	}
	return false
}

// Default returns the driver's-license schema.
func Default() *Registry {
	return NewRegistry(
		Field{Name: FieldFirstName, Type: TypeString, Required: true},
		Field{Name: FieldLastName, Type: TypeString, Required: true},
		Field{Name: FieldLicenseNumber, Type: TypeString, Required: true, Format: FormatAlphanumeric},
		Field{Name: FieldDateOfBirth, Type: TypeDate, Required: true, Format: FormatDateUS},
		Field{Name: FieldExpirationDate, Type: TypeDate, Required: true, Format: FormatDateUS},
		Field{Name: FieldStreetAddress, Type: TypeString},
		Field{Name: FieldCity, Type: TypeString},
		Field{Name: FieldState, Type: TypeString, AllowedValues: StateAbbreviations},
		Field{Name: FieldZipCode, Type: TypeString},
		Field{Name: FieldSex, Type: TypeString, AllowedValues: []string{"M", "F"}},
	)
}
