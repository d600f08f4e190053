// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided identifiers that end up
// in metric labels, log files, spool filenames, or trace attributes. Using
// these validators prevents path traversal through client-chosen names and
// keeps metric label cardinality under control.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// slotNamePattern matches valid solver slot names.
// Allows: lowercase letters, digits, dots, hyphens, underscores.
// Max length: 64 characters. Slot names become metric label values.
var slotNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._\-]{0,63}$`)

// questionIDPattern matches valid question identifiers.
// Same alphabet as slot names plus uppercase, since client-supplied IDs
// echo back through logs, spans, and solved-exam filenames.
var questionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// ValidateSlotName validates a solver slot name from configuration.
//
// Valid names:
//   - 1-64 characters
//   - lowercase letters a-z and digits 0-9
//   - dots (.), hyphens (-), underscores (_) after the first character
//
// Returns an error if the name is invalid.
func ValidateSlotName(name string) error {
	if name == "" {
		return fmt.Errorf("slot name cannot be empty")
	}
	if !slotNamePattern.MatchString(name) {
		return fmt.Errorf("invalid slot name: %q (must be 1-64 lowercase alphanumeric chars, dots, hyphens, or underscores)", name)
	}
	return nil
}

// ValidateQuestionID validates a client-supplied question identifier.
//
// IDs travel into log records, trace attributes, and output filenames, so
// separators and parent-directory sequences are rejected outright.
func ValidateQuestionID(id string) error {
	if id == "" {
		return fmt.Errorf("question id cannot be empty")
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return fmt.Errorf("question id %q must not contain path separators", id)
	}
	if !questionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid question id: %q (must be 1-64 alphanumeric chars, dots, hyphens, or underscores)", id)
	}
	return nil
}

// ValidateSlotNames validates multiple slot names.
// Returns an error listing all invalid names if any fail validation.
func ValidateSlotNames(names []string) error {
	var invalid []string
	for _, name := range names {
		if err := ValidateSlotName(name); err != nil {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid slot names: %s", strings.Join(invalid, ", "))
	}
	return nil
}
