/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLevel_String tests string representation of log levels
func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{OFF, "OFF"},
		{Level(999), "UNKNOWN"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.level.String())
		})
	}
}

// TestDefaultLogger_Levels tests level filtering of the default logger
func TestDefaultLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WARN, &buf)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

// TestDefaultLogger_SetLevel tests changing log level after creation
func TestDefaultLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(ERROR, &buf)

	l.Info("before")
	l.SetLevel(DEBUG)
	l.Info("after")

	out := buf.String()
	assert.NotContains(t, out, "before")
	assert.Contains(t, out, "after")
}

// TestDefaultLogger_Format tests the output line format
func TestDefaultLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(INFO, &buf)

	l.Info("pipeline %s done", "p-1")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "pipeline p-1 done")
}

// TestDiscardLogger tests that the discard logger emits nothing
func TestDiscardLogger(t *testing.T) {
	l := NewDiscardLogger()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	l.SetLevel(DEBUG)
}

// TestSetDefault tests swapping the global default logger
func TestSetDefault(t *testing.T) {
	old := GetDefault()
	defer SetDefault(old)

	var buf bytes.Buffer
	SetDefault(NewLogger(DEBUG, &buf))

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] d")
	assert.Contains(t, out, "[INFO] i")
	assert.Contains(t, out, "[WARN] w")
	assert.Contains(t, out, "[ERROR] e")
}
