package entity

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/value"
)

var ErrMalformedDocument = errors.New("malformed JSON document")

// JSONSource resolves top-level members of a JSON object. Numbers keep the
// exact text of the document. A missing member or null resolves to Absent.
type JSONSource struct {
	document gjson.Result
}

func NewJSONSource(raw []byte) (*JSONSource, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrMalformedDocument
	}
	document := gjson.ParseBytes(raw)
	if !document.IsObject() {
		return nil, errors.Wrapf(ErrMalformedDocument, "expected an object, got %s", document.Type)
	}
	return &JSONSource{document: document}, nil
}

func (s *JSONSource) Resolve(attribute string) (value.Value, error) {
	r := s.document.Get(gjson.Escape(attribute))
	if !r.Exists() {
		return value.Absent(), nil
	}
	switch r.Type {
	case gjson.Null:
		return value.Absent(), nil
	case gjson.String:
		return value.String(r.Str), nil
	case gjson.True, gjson.False:
		return value.Boolean(r.Bool()), nil
	case gjson.Number:
		v, err := value.ParseNumber(r.Raw)
		if err != nil {
			return value.Value{}, errors.Wrapf(err, "attribute %q", attribute)
		}
		return v, nil
	}
	return value.Value{}, errors.Wrapf(value.ErrUnsupportedType, "attribute %q holds %s", attribute, kindOfJSON(r))
}

func kindOfJSON(r gjson.Result) string {
	if r.IsArray() {
		return "an array"
	}
	return "an object"
}
