package model

import "encoding/json"

// Feature is a known language-specific attribute of a symbol.
type Feature string

const (
	FeatureTemplate     Feature = "template"
	FeatureVirtual      Feature = "virtual"
	FeatureOverride     Feature = "override"
	FeatureAsync        Feature = "async"
	FeatureGenerator    Feature = "generator"
	FeatureDecorator    Feature = "decorator"
	FeatureConstexpr    Feature = "constexpr"
	FeatureLifetime     Feature = "lifetime"
	FeatureModuleExport Feature = "module_export"
	FeatureStatic       Feature = "static"
	FeatureGeneric      Feature = "generic"
)

// LanguageFeatures holds language-specific attributes. Known features are keyed
// by Feature; anything without a shared schema goes into Extras.
type LanguageFeatures struct {
	Flags  map[Feature]string `json:"flags,omitempty"`
	Extras map[string]string  `json:"extras,omitempty"`
}

// Set records a known feature. An empty value marks the feature as present.
func (f *LanguageFeatures) Set(feature Feature, value string) {
	if f.Flags == nil {
		f.Flags = make(map[Feature]string)
	}
	f.Flags[feature] = value
}

// Has reports whether a known feature is present.
func (f LanguageFeatures) Has(feature Feature) bool {
	_, ok := f.Flags[feature]
	return ok
}

// Get returns the value recorded for a feature.
func (f LanguageFeatures) Get(feature Feature) (string, bool) {
	v, ok := f.Flags[feature]
	return v, ok
}

// SetExtra records an unstructured attribute.
func (f *LanguageFeatures) SetExtra(key, value string) {
	if f.Extras == nil {
		f.Extras = make(map[string]string)
	}
	f.Extras[key] = value
}

// Len returns the total number of recorded attributes.
func (f LanguageFeatures) Len() int {
	return len(f.Flags) + len(f.Extras)
}

// IsAdvanced reports whether the symbol uses features that make heuristic
// extraction less reliable.
func (f LanguageFeatures) IsAdvanced() bool {
	for _, feat := range []Feature{FeatureTemplate, FeatureConstexpr, FeatureLifetime, FeatureGeneric, FeatureModuleExport} {
		if f.Has(feat) {
			return true
		}
	}
	return false
}

// MarshalJSON omits the object entirely when it holds nothing.
func (f LanguageFeatures) MarshalJSON() ([]byte, error) {
	if f.Len() == 0 {
		return []byte("null"), nil
	}
	type plain LanguageFeatures
	return json.Marshal(plain(f))
}
