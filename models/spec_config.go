package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tetelio/asset-pipeline/utils/validate"
)

// Param names shared by storage providers.
const (
	ParamBucket = "Bucket"
	ParamKey    = "Key"
	ParamURI    = "URI"
)

// SpecConfig names a remote object by provider and provider-specific parameters.
// The pipeline hands one to an uploader as the destination and gets one back
// describing where the object ended up.
type SpecConfig struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// NewSpecConfig returns an empty spec of the given provider type.
func NewSpecConfig(t string) *SpecConfig {
	return &SpecConfig{
		Type:   t,
		Params: make(map[string]interface{}),
	}
}

// WithParam sets a parameter and returns the spec for chaining.
func (s *SpecConfig) WithParam(key string, value interface{}) *SpecConfig {
	if s.Params == nil {
		s.Params = make(map[string]interface{})
	}
	s.Params[key] = value
	return s
}

// StringParam returns the parameter as a string. Missing parameters and
// parameters of another type yield "".
func (s *SpecConfig) StringParam(key string) string {
	if s == nil {
		return ""
	}
	switch v := s.Params[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

// RemoteURI is the URI an uploader reported for the stored object, if any.
func (s *SpecConfig) RemoteURI() string {
	return s.StringParam(ParamURI)
}

// Normalize trims the type and replaces a nil params map with an empty one.
func (s *SpecConfig) Normalize() {
	if s == nil {
		return
	}
	s.Type = strings.TrimSpace(s.Type)
	if s.Params == nil {
		s.Params = make(map[string]interface{})
	}
}

// Validate rejects nil specs and specs without a provider type.
func (s *SpecConfig) Validate() error {
	if s == nil {
		return errors.New("nil spec config")
	}
	if validate.IsBlank(s.Type) {
		return errors.New("missing spec type")
	}
	return nil
}

// IsType reports whether the spec belongs to provider t, ignoring case.
func (s *SpecConfig) IsType(t string) bool {
	if s == nil {
		return false
	}
	return strings.EqualFold(s.Type, strings.TrimSpace(t))
}
