package model

import (
	"fmt"
	"strings"
)

const DefaultCategoryColor = "#e5e7eb"

type Category struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name is required", ErrValidation)
	}
	return nil
}

// DisplayColor falls back to the neutral gray used for uncoloured categories.
func (c Category) DisplayColor() string {
	if strings.TrimSpace(c.Color) == "" {
		return DefaultCategoryColor
	}
	return c.Color
}

type Contact struct {
	ChatID   FlexString `json:"chat_id"`
	Name     string     `json:"name,omitempty"`
	Username string     `json:"username,omitempty"`
	Group    string     `json:"group,omitempty"`
}

func (c Contact) Validate() error {
	if strings.TrimSpace(string(c.ChatID)) == "" {
		return fmt.Errorf("%w: contact chat_id is required", ErrValidation)
	}
	return nil
}

// Label renders "name (username)" the way contacts are shown next to tasks.
func (c Contact) Label() string {
	switch {
	case c.Name != "" && c.Username != "":
		return fmt.Sprintf("%s (%s)", c.Name, c.Username)
	case c.Name != "":
		return c.Name
	case c.Username != "":
		return c.Username
	default:
		return string(c.ChatID)
	}
}

func ValidateContactHandle(handle string) error {
	handle = strings.TrimSpace(handle)
	if !strings.HasPrefix(handle, "@") || len(handle) < 2 {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidContactHandle, handle)
	}
	return nil
}
