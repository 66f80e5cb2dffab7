// Package models defines the domain types for galaxytab.
package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Link is one bookmark tile on the dashboard.
type Link struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Icon       string `json:"icon"`
	Category   string `json:"category"`
	ClickCount int    `json:"clickCount,omitempty"`
}

// LinkDraft is a link without an id, as supplied to Add.
type LinkDraft struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Icon     string `json:"icon"`
	Category string `json:"category"`
}

// Validate checks the fields a caller must supply. The collection itself
// accepts any draft; boundaries (API, CLI, MCP) validate first.
func (d LinkDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&d.URL, validation.Required, validation.Length(1, 2048)),
	)
}

// LinkPatch holds the fields to change on an existing link. Nil fields are
// left alone.
type LinkPatch struct {
	Title    *string `json:"title,omitempty"`
	URL      *string `json:"url,omitempty"`
	Icon     *string `json:"icon,omitempty"`
	Category *string `json:"category,omitempty"`
}

// Apply returns l with the non-nil fields of p merged in.
func (p LinkPatch) Apply(l Link) Link {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.URL != nil {
		l.URL = *p.URL
	}
	if p.Icon != nil {
		l.Icon = *p.Icon
	}
	if p.Category != nil {
		l.Category = *p.Category
	}
	return l
}

// Empty reports whether p changes nothing.
func (p LinkPatch) Empty() bool {
	return p.Title == nil && p.URL == nil && p.Icon == nil && p.Category == nil
}
