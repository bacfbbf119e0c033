package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/distribution/reference"
)

const emailLocalChars = "a-z0-9!#$%&'*+/=?^_`{|}~-"

var (
	// URLRegExp matches absolute http(s)/ftp or protocol-relative URLs.
	URLRegExp = regexp.MustCompile(`(?i)^(?:(?:(?:https?|ftp):)?//)` +
		`((([a-z\d]([a-z\d-]*[a-z\d])*)\.?)+[a-z]{2,}|` +
		`((\d{1,3}\.){3}\d{1,3}))` +
		`(:\d+)?(/[-a-z\d%_.~+]*)*` +
		`(\?[;&a-z\d%_.~+=-]*)?` +
		`(#[-a-z\d_]*)?$`)

	// EmailRegExp matches RFC 5322 style addresses.
	EmailRegExp = regexp.MustCompile(`(?i)^(?:[` + emailLocalChars + `]+(?:\.[` + emailLocalChars + `]+)*|` +
		`"(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21\x23-\x5b\x5d-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])*")` +
		`@(?:(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?` +
		`|\[(?:(?:25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])\.){3}` +
		`(?:25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9]|[a-z0-9-]*[a-z0-9]:` +
		`(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21-\x5a\x53-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])+)\])$`)

	// SemverRegExp matches semantic versions with an optional v prefix.
	SemverRegExp = regexp.MustCompile(`^([v|V])?(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
		`(-(0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(\.(0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*)?` +
		`(\+[0-9a-zA-Z-]+(\.[0-9a-zA-Z-]+)*)?$`)
)

const (
	SemverErrorMessage     = "Must be in semantic version format (e.g 0.0.1 or v0.0.1)"
	NoMaintainersMessage   = "At least one maintainer is required."
	InvalidEmailMessage    = "Must be a valid email address"
	NoLinksMessage         = "At least one external link is required."
	InvalidURLMessage      = "Must be a valid URL"
	InvalidImageMessage    = "Must be a valid image reference (e.g. quay.io/example/example-operator:v0.0.1)"
	InvalidKubeVersMessage = "Must be in the format Major.Minor.Patch (e.g. 1.11.0)"
)

// DefaultTable returns the rules applied to operator documents.
func DefaultTable() Table {
	return Table{
		"metadata": {Fields: Table{
			"name": {Rule: &Rule{Required: true}},
			"annotations": {Fields: Table{
				"capabilities":   {Rule: &Rule{Required: true}},
				"description":    {Rule: &Rule{Required: true, MaxLength: 135}},
				"containerImage": {Rule: &Rule{Validator: ImageValidator}},
			}},
		}},
		"spec": {Fields: Table{
			"displayName": {Rule: &Rule{Required: true}},
			"description": {Rule: &Rule{Required: true}},
			"version": {Rule: &Rule{
				Required:          true,
				Regex:             SemverRegExp,
				RegexErrorMessage: SemverErrorMessage,
			}},
			"maturity":                  {Rule: &Rule{Required: true}},
			"minKubeVersion":            {Rule: &Rule{Validator: KubeVersionValidator}},
			"maintainers":               {Rule: &Rule{Validator: MaintainersValidator}},
			"links":                     {Rule: &Rule{Validator: LinksValidator}},
			"icon":                      {Rule: &Rule{Required: true}},
			"installModes":              {Rule: &Rule{Required: true}},
			"customresourcedefinitions": {Rule: &Rule{Required: true}},
		}},
	}
}

// MaintainersValidator requires at least one maintainer, each with a valid
// email address.
func MaintainersValidator(value interface{}) *FieldError {
	return listValidator(value, NoMaintainersMessage, "email", EmailRegExp, InvalidEmailMessage)
}

// LinksValidator requires at least one link, each with a valid URL.
func LinksValidator(value interface{}) *FieldError {
	return listValidator(value, NoLinksMessage, "url", URLRegExp, InvalidURLMessage)
}

func listValidator(value interface{}, emptyMsg, field string, re *regexp.Regexp, invalidMsg string) *FieldError {
	items, _ := value.([]interface{})
	if len(items) == 0 {
		return Message(emptyMsg)
	}

	failed := false
	rows := make([]*RowError, len(items))
	for i, item := range items {
		obj, _ := item.(map[string]interface{})
		if !re.MatchString(stringify(obj[field])) {
			failed = true
			rows[i] = &RowError{Value: invalidMsg}
		}
	}
	if !failed {
		return nil
	}
	return &FieldError{Items: rows}
}

// ImageValidator accepts an empty value or a parseable image reference.
func ImageValidator(value interface{}) *FieldError {
	s := strings.TrimSpace(stringify(value))
	if s == "" {
		return nil
	}
	if _, err := reference.ParseNormalizedNamed(s); err != nil {
		return Message(InvalidImageMessage)
	}
	return nil
}

// KubeVersionValidator accepts an empty value or a Major.Minor.Patch version.
func KubeVersionValidator(value interface{}) *FieldError {
	s := strings.TrimSpace(stringify(value))
	if s == "" {
		return nil
	}
	if _, err := semver.Parse(strings.TrimPrefix(s, "v")); err != nil {
		return Message(InvalidKubeVersMessage)
	}
	return nil
}

// stringify renders a value the way it is matched against regular
// expressions. Absent values become the empty string.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	}
	return fmt.Sprint(value)
}
