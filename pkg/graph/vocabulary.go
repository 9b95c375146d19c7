package graph

import (
	"strings"
	"unicode"
)

// Vocabulary describes the markers and seed data the builder needs for a
// particular source taxonomy.
type Vocabulary struct {
	// Namespace is the identifier prefix stripped to produce display names.
	Namespace string `yaml:"namespace"`
	// ClassMarker is the @type value of nodes that become entities.
	ClassMarker string `yaml:"class_marker"`
	// DataTypeMarker is the @type value of primitive data types.
	DataTypeMarker string `yaml:"datatype_marker"`
	// Baseline is seeded onto every pattern entry.
	Baseline []string `yaml:"baseline_properties"`
	// DataTypes lists the primitive types, simplest first.
	DataTypes []string `yaml:"data_types"`
}

// SchemaOrg is the vocabulary of https://schema.org.
var SchemaOrg = Vocabulary{
	Namespace:      "schema:",
	ClassMarker:    "rdfs:Class",
	DataTypeMarker: "schema:DataType",
	Baseline: []string{
		"schema:disambiguatingDescription",
		"schema:url",
		"schema:subjectOf",
		"schema:mainEntityOfPage",
		"schema:alternateName",
		"schema:additionalType",
		"schema:description",
		"schema:image",
		"schema:identifier",
		"schema:potentialAction",
		"schema:sameAs",
		"schema:name",
	},
	DataTypes: []string{
		"schema:Text",
		"schema:Time",
		"schema:DateTime",
		"schema:Boolean",
		"schema:Number",
		"schema:Date",
	},
}

// WithDefaults fills empty fields from SchemaOrg.
func (v Vocabulary) WithDefaults() Vocabulary {
	if v.Namespace == "" {
		v.Namespace = SchemaOrg.Namespace
	}
	if v.ClassMarker == "" {
		v.ClassMarker = SchemaOrg.ClassMarker
	}
	if v.DataTypeMarker == "" {
		v.DataTypeMarker = SchemaOrg.DataTypeMarker
	}
	if len(v.Baseline) == 0 {
		v.Baseline = append([]string(nil), SchemaOrg.Baseline...)
	}
	if len(v.DataTypes) == 0 {
		v.DataTypes = append([]string(nil), SchemaOrg.DataTypes...)
	}
	return v
}

// StripNamespace returns the display name of an identifier.
func (v Vocabulary) StripNamespace(id string) string {
	return strings.TrimPrefix(id, v.Namespace)
}

// SimplestDataType returns the first of types that is a primitive data type,
// in the order the candidates are given.
func (v Vocabulary) SimplestDataType(types []string) (string, bool) {
	for _, t := range types {
		for _, dt := range v.DataTypes {
			if t == dt {
				return t, true
			}
		}
	}
	return "", false
}

// StripNamespace strips the schema.org prefix.
func StripNamespace(id string) string {
	return SchemaOrg.StripNamespace(id)
}

// SimplestDataType picks the simplest schema.org data type from types.
func SimplestDataType(types []string) (string, bool) {
	return SchemaOrg.SimplestDataType(types)
}

// HumanTitle splits a camel-cased name into words: "JobPosting" becomes
// "Job Posting", "WebAPI" becomes "Web API".
func HumanTitle(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if (prevLower || nextLower) && runes[i-1] != ' ' {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
