package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxTitleLength is the longest accepted title, in characters.
	MaxTitleLength = 200
	// MaxDescriptionLength is the longest accepted description, in characters.
	MaxDescriptionLength = 2000
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NewTask holds the client-supplied fields of a task being created.
type NewTask struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description,omitempty" validate:"max=2000"`
	Priority    Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	DueDate     *Date    `json:"dueDate,omitempty"`
}

// Normalize trims the title, applies the default priority and drops an empty
// due date.
func (n *NewTask) Normalize() {
	n.Title = strings.TrimSpace(n.Title)
	if n.Priority == "" {
		n.Priority = DefaultPriority
	}
	if n.DueDate != nil && n.DueDate.IsZero() {
		n.DueDate = nil
	}
}

// Validate checks the fields against the create rules.
func (n NewTask) Validate() error {
	if err := validate.Struct(n); err != nil {
		return toValidationError("", err)
	}
	return nil
}

// DecodeNewTask parses a create body. It accepts title, description, priority
// and dueDate and rejects every other field.
func DecodeNewTask(body []byte) (NewTask, error) {
	raw, keys, err := decodeObject(body)
	if err != nil {
		return NewTask{}, err
	}

	var n NewTask
	for _, key := range keys {
		val := raw[key]
		switch key {
		case "title":
			if err := json.Unmarshal(val, &n.Title); err != nil {
				return NewTask{}, NewValidationError(key, "must be a string")
			}
		case "description":
			var s *string
			if err := json.Unmarshal(val, &s); err != nil {
				return NewTask{}, NewValidationError(key, "must be a string")
			}
			if s != nil {
				n.Description = *s
			}
		case "priority":
			var s *string
			if err := json.Unmarshal(val, &s); err != nil {
				return NewTask{}, NewValidationError(key, "must be a string")
			}
			if s != nil {
				n.Priority = Priority(*s)
			}
		case "dueDate":
			var d Date
			if err := json.Unmarshal(val, &d); err != nil {
				return NewTask{}, NewValidationError(key, "must be a date in YYYY-MM-DD format")
			}
			if !d.IsZero() {
				n.DueDate = &d
			}
		default:
			return NewTask{}, unexpectedField(key)
		}
	}
	return n, nil
}

// Patch lists the client-writable fields of an update. Nil means "leave
// unchanged"; ClearDueDate removes the due date.
type Patch struct {
	Title        *string   `json:"title,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Priority     *Priority `json:"priority,omitempty"`
	DueDate      *Date     `json:"dueDate,omitempty"`
	ClearDueDate bool      `json:"clearDueDate,omitempty"`
	Completed    *bool     `json:"completed,omitempty"`
}

// serverFields can never be written by a client.
var serverFields = map[string]bool{
	"id": true, "_id": true, "userId": true, "user_id": true, "owner": true,
	"createdAt": true, "created_at": true, "updatedAt": true, "updated_at": true,
}

// DecodePatch parses an update body. Only title, description, priority,
// dueDate and completed are accepted; server-controlled or unknown fields are
// rejected with a ValidationError.
func DecodePatch(body []byte) (Patch, error) {
	raw, keys, err := decodeObject(body)
	if err != nil {
		return Patch{}, err
	}

	var p Patch
	for _, key := range keys {
		val := raw[key]
		switch key {
		case "title":
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return Patch{}, NewValidationError(key, "must be a string")
			}
			p.Title = &s
		case "description":
			var s *string
			if err := json.Unmarshal(val, &s); err != nil {
				return Patch{}, NewValidationError(key, "must be a string")
			}
			if s == nil {
				s = new(string)
			}
			p.Description = s
		case "priority":
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return Patch{}, NewValidationError(key, "must be a string")
			}
			pr := Priority(s)
			p.Priority = &pr
		case "dueDate":
			var d Date
			if err := json.Unmarshal(val, &d); err != nil {
				return Patch{}, NewValidationError(key, "must be a date in YYYY-MM-DD format")
			}
			if d.IsZero() {
				p.ClearDueDate = true
			} else {
				p.DueDate = &d
			}
		case "completed":
			var b bool
			if bytes.Equal(val, []byte("null")) {
				return Patch{}, NewValidationError(key, "must be a boolean")
			}
			if err := json.Unmarshal(val, &b); err != nil {
				return Patch{}, NewValidationError(key, "must be a boolean")
			}
			p.Completed = &b
		default:
			return Patch{}, unexpectedField(key)
		}
	}
	return p, nil
}

// decodeObject unmarshals a JSON object and returns its keys sorted so the
// first offending field is reported deterministically.
func decodeObject(body []byte) (map[string]json.RawMessage, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, nil, NewValidationError("", "request body must be a JSON object")
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return raw, keys, nil
}

func unexpectedField(key string) error {
	if serverFields[key] {
		return NewValidationError(key, "is server-controlled and cannot be set")
	}
	return NewValidationError(key, "is not a recognized field")
}

// Normalize trims the title if one is present.
func (p *Patch) Normalize() {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		p.Title = &t
	}
}

// Validate checks the present fields against the same rules as NewTask.
func (p Patch) Validate() error {
	if p.Title != nil {
		if err := validate.Var(*p.Title, "required,max=200"); err != nil {
			return toValidationError("title", err)
		}
	}
	if p.Description != nil {
		if err := validate.Var(*p.Description, "max=2000"); err != nil {
			return toValidationError("description", err)
		}
	}
	if p.Priority != nil {
		if err := validate.Var(string(*p.Priority), "oneof=low medium high"); err != nil {
			return toValidationError("priority", err)
		}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.DueDate == nil && !p.ClearDueDate && p.Completed == nil
}

// Fields names the fields present in the patch, in wire form.
func (p Patch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.DueDate != nil || p.ClearDueDate {
		fields = append(fields, "dueDate")
	}
	if p.Completed != nil {
		fields = append(fields, "completed")
	}
	return fields
}

// toValidationError converts the first validator failure into a ValidationError.
func toValidationError(field string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewValidationError(field, err.Error())
	}
	fe := verrs[0]
	if field == "" {
		field = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return NewValidationError(field, "is required")
	case "max":
		return NewValidationError(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
	case "oneof":
		return NewValidationError(field, "must be one of: "+strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return NewValidationError(field, fmt.Sprintf("failed %q validation", fe.Tag()))
}
