// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the shared data structures for the forge
// builder: conversation messages and the verification verdict shape.
//
// Messages follow the standard OpenAI/Anthropic role conventions and are
// immutable once created. Validation uses go-playground/validator so the
// store can reject malformed input before mutating any state.
package datatypes

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Message roles. Only these three are accepted by the conversation store.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxMessageContentBytes is the maximum size of a single message content.
// Oversized payloads are rejected at validation time rather than truncated.
const MaxMessageContentBytes = 32 * 1024 // 32KB

// ErrInvalidMessage is returned when a message fails validation.
// Wraps the underlying validator error for field-level detail.
var ErrInvalidMessage = fmt.Errorf("invalid message")

// messageValidate is the validator instance for builder datatypes.
var messageValidate *validator.Validate

func init() {
	messageValidate = validator.New()
	_ = messageValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks byte length (not rune count) against
// MaxMessageContentBytes.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// Message represents a single turn in a conversation branch.
//
// # Description
//
// A Message is immutable once appended to a branch: there are no in-place
// edits, only appends and window truncation. Every message carries a UUID
// and a unix-millisecond timestamp so persisted snapshots can be correlated
// with logs.
//
// # Fields
//
//   - Role: One of "system", "user", "assistant".
//   - Content: The text content. Must be non-empty and at most 32KB.
//   - Timestamp: Unix timestamp in milliseconds (UTC) when the message
//     was created.
//   - ID: Unique identifier for this message (UUID v4).
type Message struct {
	Role      string `json:"role" validate:"required,oneof=system user assistant"`
	Content   string `json:"content" validate:"required,maxbytes"`
	Timestamp int64  `json:"timestamp"`
	ID        string `json:"id"`
}

// NewMessage creates a validated Message with a fresh ID and timestamp.
//
// # Inputs
//
//   - role: Must be one of the Role* constants.
//   - content: Must be non-empty and at most MaxMessageContentBytes.
//
// # Outputs
//
//   - Message: The validated message, ready to append.
//   - error: Wraps ErrInvalidMessage if validation failed.
func NewMessage(role, content string) (Message, error) {
	msg := Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		ID:        uuid.NewString(),
	}
	if err := messageValidate.Struct(msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return msg, nil
}

// ClampContent truncates content to MaxMessageContentBytes, backing off
// to the previous rune boundary so the result stays valid UTF-8. Content
// already within the limit is returned unchanged.
//
// Model replies can legitimately exceed the per-message cap; callers
// that record such replies clamp instead of failing the turn.
func ClampContent(content string) string {
	if len(content) <= MaxMessageContentBytes {
		return content
	}
	cut := MaxMessageContentBytes
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

// Validate re-checks an existing message, e.g. after loading a snapshot.
func (m Message) Validate() error {
	if err := messageValidate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}
