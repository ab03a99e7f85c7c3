// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianForge/services/builder/datatypes"
)

// MockClient is a mock LLM client for testing.
//
// Thread Safety:
//
//	MockClient is safe for concurrent use.
type MockClient struct {
	mu sync.RWMutex

	// name is the provider name.
	name string

	// model is the model name.
	model string

	// responses are queued replies returned in order.
	responses []string

	// defaultResponse is returned when no queued responses remain.
	defaultResponse string

	// calls records all calls made to Chat.
	calls []ChatCall

	// responseFunc allows dynamic response generation. Takes precedence
	// over queued responses when set.
	responseFunc func(messages []datatypes.Message) (string, error)

	// errorToReturn causes Chat to return this error.
	errorToReturn error
}

// ChatCall records a call to Chat.
type ChatCall struct {
	Messages  []datatypes.Message
	Params    GenerationParams
	Timestamp time.Time
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{
		name:            "mock",
		model:           "mock-model",
		defaultResponse: "Mock response",
		calls:           make([]ChatCall, 0),
	}
}

// WithName sets the provider name.
func (c *MockClient) WithName(name string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
	return c
}

// QueueResponse appends a reply to the response queue.
func (c *MockClient) QueueResponse(reply string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, reply)
	return c
}

// WithDefaultResponse sets the reply used when the queue is empty.
func (c *MockClient) WithDefaultResponse(reply string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultResponse = reply
	return c
}

// WithResponseFunc sets a dynamic response generator.
func (c *MockClient) WithResponseFunc(fn func(messages []datatypes.Message) (string, error)) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responseFunc = fn
	return c
}

// WithError causes every Chat call to fail with err.
func (c *MockClient) WithError(err error) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorToReturn = err
	return c
}

// Chat implements the Client interface.
func (c *MockClient) Chat(ctx context.Context, messages []datatypes.Message,
	params GenerationParams) (string, error) {

	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	recorded := make([]datatypes.Message, len(messages))
	copy(recorded, messages)
	c.calls = append(c.calls, ChatCall{
		Messages:  recorded,
		Params:    params,
		Timestamp: time.Now(),
	})

	if c.errorToReturn != nil {
		return "", c.errorToReturn
	}
	if c.responseFunc != nil {
		return c.responseFunc(recorded)
	}
	if len(c.responses) > 0 {
		reply := c.responses[0]
		c.responses = c.responses[1:]
		return reply, nil
	}
	return c.defaultResponse, nil
}

// Name implements Client.
func (c *MockClient) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Model implements Client.
func (c *MockClient) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// Calls returns a copy of all recorded calls.
func (c *MockClient) Calls() []ChatCall {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ChatCall, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns the number of Chat calls made.
func (c *MockClient) CallCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.calls)
}
