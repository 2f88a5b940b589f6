package snapshot

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/teranos/refresh/errors"
)

// MissingKeyError names the first required key a snapshot lacks, as a dotted
// path such as "metadata.period" or "kpi.employmentRate".
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required key: %s", e.Key)
}

func missingKey(key string) error {
	return errors.Mark(&MissingKeyError{Key: key}, errors.ErrMissingKey)
}

// MissingKey returns the key named by a MissingKeyError anywhere in err's chain
func MissingKey(err error) (string, bool) {
	var mk *MissingKeyError
	if errors.As(err, &mk) {
		return mk.Key, true
	}
	return "", false
}

// schemaValidate checks struct tags; field names are reported by their JSON keys.
var schemaValidate *validator.Validate

func init() {
	schemaValidate = validator.New(validator.WithRequiredStructEnabled())
	schemaValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate enforces the snapshot schema: metadata and kpi present, metadata
// carries title, period and updatedOn, kpi carries every RequiredKPIs key.
// It is pure and safe to call on any snapshot, including decoded backups.
func Validate(s *Snapshot) error {
	if s == nil {
		return missingKey("metadata")
	}

	if err := schemaValidate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return missingKey(keyPath(fieldErrs[0].Namespace()))
		}
		return errors.Wrap(err, "schema validation")
	}

	for _, key := range RequiredKPIs {
		if _, ok := s.KPI[key]; !ok {
			return missingKey("kpi." + key)
		}
	}
	return nil
}

// ValidateArtifact decodes an artifact file's content and validates the snapshot in it
func ValidateArtifact(data []byte, variable string) (*Snapshot, error) {
	s, err := Decode(data, variable)
	if err != nil {
		return nil, err
	}
	if err := Validate(s); err != nil {
		return s, err
	}
	return s, nil
}

// keyPath drops the root type name: "Snapshot.metadata.title" -> "metadata.title"
func keyPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
