// Package models defines the request-scoped types of the person network.
package models

import "strconv"

// PersonNode is a person discovered during network exploration.
type PersonNode struct {
	ID          int64  `json:"id"`
	Label       string `json:"label"`
	Name        string `json:"name,omitempty"`
	NameChn     string `json:"name_chn,omitempty"`
	DynastyCode *int   `json:"dynasty_code,omitempty"`
	Dynasty     string `json:"dynasty,omitempty"`
	BirthYear   *int   `json:"birth_year,omitempty"`
	DeathYear   *int   `json:"death_year,omitempty"`
	Depth       int    `json:"depth"`
	IsSeed      bool   `json:"is_seed"`
}

// PersonLabel picks the display label: Chinese name, then romanized name, then a placeholder.
func PersonLabel(id int64, nameChn, name string) string {
	if nameChn != "" {
		return nameChn
	}

	if name != "" {
		return name
	}

	return PlaceholderLabel(id)
}

// PlaceholderLabel is the label used for persons without any recorded name.
func PlaceholderLabel(id int64) string {
	return "Person " + strconv.FormatInt(id, 10)
}
