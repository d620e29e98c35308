package sift

import (
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// FieldType is the semantic type of a schema field.
type FieldType string

// Supported field types.
const (
	FieldString FieldType = "string"
	FieldURL    FieldType = "url"
	FieldEmail  FieldType = "email"
	FieldNumber FieldType = "number"
	FieldPrice  FieldType = "price"
	FieldEnum   FieldType = "enum"
	FieldList   FieldType = "list"
)

// Field describes one field of a record.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required,omitempty" yaml:"required"`
	Enum        []string  `json:"enum,omitempty" yaml:"enum"`
	Description string    `json:"description,omitempty" yaml:"description"`
}

// Schema describes the records to extract from a page.
type Schema struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description"`
	Fields      []Field `json:"fields" yaml:"fields"`

	// BlockingKey names the stable identifying fields used to partition
	// records during deduplication (e.g., name + affiliation).
	BlockingKey []string `json:"blockingKey,omitempty" yaml:"blockingKey"`

	// Keywords are words that typically appear in one record's markup, used
	// to pick out repeated record cards on listing pages.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords"`
}

// reservedFields are keys used by the persisted record format.
var reservedFields = map[string]bool{
	"sourceUrl": true,
	"fetchedAt": true,
	"sources":   true,
	"_id":       true,
	"_target":   true,
	"_chunk":    true,
}

// Validate returns an error if the schema contains invalid fields.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return Errorf(EINVALID, "schema name required")
	}
	if len(s.Fields) == 0 {
		return Errorf(EINVALID, "schema %q has no fields", s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return Errorf(EINVALID, "schema %q: field name required", s.Name)
		}
		if reservedFields[f.Name] {
			return Errorf(EINVALID, "schema %q: field name %q is reserved", s.Name, f.Name)
		}
		if seen[f.Name] {
			return Errorf(EINVALID, "schema %q: duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		switch f.Type {
		case FieldString, FieldURL, FieldEmail, FieldNumber, FieldPrice, FieldList:
		case FieldEnum:
			if len(f.Enum) == 0 {
				return Errorf(EINVALID, "schema %q: enum field %q needs values", s.Name, f.Name)
			}
		default:
			return Errorf(EINVALID, "schema %q: field %q has unknown type %q", s.Name, f.Name, f.Type)
		}
	}
	for _, name := range s.BlockingKey {
		if !seen[name] {
			return Errorf(EINVALID, "schema %q: blocking key field %q not defined", s.Name, name)
		}
	}
	return nil
}

// Field returns the field with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Check validates raw model output against the schema.
// On success it returns the normalized string value of every present field;
// fields not in the schema are ignored. Relative URLs are resolved against
// base when base is set.
func (s *Schema) Check(raw map[string]any, base string) (map[string]string, *ValidationError) {
	values := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		v, ok := lookup(raw, f.Name)
		if !ok {
			if f.Required {
				return nil, &ValidationError{Field: f.Name, Code: ReasonMissingField, Detail: "required field absent"}
			}
			continue
		}
		text, verr := scalar(f, v)
		if verr != nil {
			return nil, verr
		}
		if text == "" {
			if f.Required {
				return nil, &ValidationError{Field: f.Name, Code: ReasonMissingField, Detail: "required field empty"}
			}
			continue
		}
		norm, verr := conform(f, text, base)
		if verr != nil {
			return nil, verr
		}
		values[f.Name] = norm
	}
	if len(values) == 0 {
		return nil, &ValidationError{Code: ReasonMissingField, Detail: "no schema fields present"}
	}
	return values, nil
}

// lookup finds a field in raw output, tolerating case and separator
// differences ("Research Interest" for "research_interest").
func lookup(raw map[string]any, name string) (any, bool) {
	if v, ok := raw[name]; ok && v != nil {
		return v, true
	}
	want := foldKey(name)
	for k, v := range raw {
		if v != nil && foldKey(k) == want {
			return v, true
		}
	}
	return nil, false
}

func foldKey(k string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(k) {
		switch r {
		case ' ', '_', '-', '.':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// scalar renders a decoded JSON value as text.
func scalar(f Field, v any) (string, *ValidationError) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case []any:
		if f.Type != FieldList {
			return "", &ValidationError{Field: f.Name, Code: ReasonTypeMismatch, Detail: "array given for scalar field"}
		}
		items := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return "", &ValidationError{Field: f.Name, Code: ReasonTypeMismatch, Detail: "list items must be strings"}
			}
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		return strings.Join(items, ListSeparator), nil
	default:
		return "", &ValidationError{Field: f.Name, Code: ReasonTypeMismatch, Detail: "object given for scalar field"}
	}
}

// ListSeparator joins the items of a list field.
const ListSeparator = "; "

var priceRe = regexp.MustCompile(`([$€£¥])?\s*(\d[\d,]*(?:\.\d+)?)`)

// conform checks a value against its field type and normalizes it.
func conform(f Field, text, base string) (string, *ValidationError) {
	mismatch := func(detail string) (string, *ValidationError) {
		return "", &ValidationError{Field: f.Name, Code: ReasonTypeMismatch, Detail: detail}
	}

	switch f.Type {
	case FieldURL:
		u, err := url.Parse(text)
		if err != nil {
			return mismatch("unparsable URL")
		}
		if !u.IsAbs() && base != "" {
			if b, err := url.Parse(base); err == nil {
				u = b.ResolveReference(u)
			}
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return mismatch("not an absolute http(s) URL")
		}
		return u.String(), nil

	case FieldEmail:
		addr, err := mail.ParseAddress(strings.TrimPrefix(text, "mailto:"))
		if err != nil {
			return mismatch("not an email address")
		}
		return strings.ToLower(addr.Address), nil

	case FieldNumber:
		n, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64)
		if err != nil {
			return mismatch("not a number")
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil

	case FieldPrice:
		m := priceRe.FindStringSubmatch(text)
		if m == nil {
			return mismatch("no amount in price")
		}
		amount, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
		if err != nil {
			return mismatch("unparsable amount")
		}
		if amount <= 0 {
			return mismatch("zero price")
		}
		return m[1] + strconv.FormatFloat(amount, 'f', 2, 64), nil

	case FieldEnum:
		for _, e := range f.Enum {
			if strings.EqualFold(e, text) {
				return e, nil
			}
		}
		return mismatch("not one of " + strings.Join(f.Enum, ", "))
	}
	return text, nil
}

// ParsePrice returns the numeric amount of a normalized price or number value.
func ParsePrice(v string) (float64, bool) {
	m := priceRe.FindStringSubmatch(v)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FacultySchema returns the built-in schema for academic directory listings.
func FacultySchema() *Schema {
	return &Schema{
		Name:        "faculty",
		Description: "People listed in a university faculty or staff directory",
		Fields: []Field{
			{Name: "name", Type: FieldString, Required: true, Description: "Full name of the person"},
			{Name: "title", Type: FieldString, Required: true, Description: "Academic or job title, e.g. Professor"},
			{Name: "affiliation", Type: FieldString, Description: "Department, school, or university"},
			{Name: "email", Type: FieldEmail, Description: "Email address"},
			{Name: "profile_url", Type: FieldURL, Description: "Link to the person's profile page"},
			{Name: "research_interests", Type: FieldList, Description: "Research interests or areas"},
		},
		BlockingKey: []string{"name", "affiliation"},
		Keywords:    []string{"professor", "lecturer"},
	}
}

// ProductSchema returns the built-in schema for shopping listings.
func ProductSchema() *Schema {
	return &Schema{
		Name:        "product",
		Description: "Products listed on a shopping or search results page",
		Fields: []Field{
			{Name: "title", Type: FieldString, Required: true, Description: "Product title"},
			{Name: "brand", Type: FieldString, Description: "Brand or manufacturer"},
			{Name: "price", Type: FieldPrice, Required: true, Description: "Price with currency symbol, e.g. $99.99"},
			{Name: "url", Type: FieldURL, Description: "Link to the product page"},
			{Name: "categories", Type: FieldList, Description: "Product categories"},
		},
		BlockingKey: []string{"title", "brand"},
		Keywords:    []string{"$", "€", "£", "price", "add to cart"},
	}
}

// BuiltinSchemas returns the preset schemas in name order.
func BuiltinSchemas() []*Schema {
	return []*Schema{FacultySchema(), ProductSchema()}
}

// LookupSchema returns the preset schema with the given name.
// Returns ENOTFOUND if no preset has that name.
func LookupSchema(name string) (*Schema, error) {
	for _, s := range BuiltinSchemas() {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, Errorf(ENOTFOUND, "schema %q not found", name)
}
