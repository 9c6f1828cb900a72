// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateServer(cfg, errs)
	v.validateContainer(cfg, errs)
	v.validateDurations(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateServer(cfg *Config, errs *ValidationError) {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs.Add("server.port", fmt.Sprintf("invalid port %d", cfg.Server.Port))
	}
}

func (v *Validator) validateContainer(cfg *Config, errs *ValidationError) {
	pr := cfg.Container.PortRange
	if pr.First <= 0 || pr.First > 65535 {
		errs.Add("container.port_range.first", fmt.Sprintf("invalid port %d", pr.First))
	}
	if pr.Last <= 0 || pr.Last > 65535 {
		errs.Add("container.port_range.last", fmt.Sprintf("invalid port %d", pr.Last))
	}
	if pr.First > 0 && pr.Last > 0 && pr.First > pr.Last {
		errs.Add("container.port_range", fmt.Sprintf("first (%d) must not exceed last (%d)", pr.First, pr.Last))
	}
}

func (v *Validator) validateDurations(cfg *Config, errs *ValidationError) {
	durations := []struct {
		field string
		value string
	}{
		{"container.start_timeout", cfg.Container.StartTimeout},
		{"session.command_timeout", cfg.Session.CommandTimeout},
		{"events.history_max_age", cfg.Events.HistoryMaxAge},
	}

	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			errs.Add(d.field, fmt.Sprintf("invalid duration %q", d.value))
		}
	}
}
