// Copyright 2025 Open Resource Broker Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging provides structured JSON logging for the broker, with
// request and template identifiers threaded through context.Context so
// every log line inside a command/query handler is automatically
// attributed to the request being processed.
package logging

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	Debug Level = "DEBUG"
	Info  Level = "INFO"
	Warn  Level = "WARN"
	Error Level = "ERROR"
)

// Entry is a single structured log line.
type Entry struct {
	Timestamp  string                 `json:"timestamp"`
	Level      Level                  `json:"level"`
	Component  string                 `json:"component"`
	InstanceID string                 `json:"instance_id"`
	Host       string                 `json:"host"`
	RequestID  string                 `json:"request_id,omitempty"`
	TemplateID string                 `json:"template_id,omitempty"`
	Message    string                 `json:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Logger emits structured JSON log entries for a single component.
type Logger struct {
	component  string
	instanceID string
	host       string
	out        *log.Logger
}

// New creates a Logger for the named component (e.g. "bus", "provider.aws").
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "unknown"
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Logger{
		component:  component,
		instanceID: instanceID,
		host:       host,
		out:        log.New(os.Stdout, "", 0),
	}
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	templateIDKey
)

// WithRequestID returns a context carrying the given request id for later
// log calls made with that context to pick up automatically.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithTemplateID returns a context carrying the given template id.
func WithTemplateID(ctx context.Context, templateID string) context.Context {
	return context.WithValue(ctx, templateIDKey, templateID)
}

// RequestIDFrom extracts a request id previously stored with WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// TemplateIDFrom extracts a template id previously stored with WithTemplateID.
func TemplateIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(templateIDKey).(string)
	return v
}

func (l *Logger) log(ctx context.Context, level Level, message string, fields map[string]interface{}) {
	entry := Entry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      level,
		Component:  l.component,
		InstanceID: l.instanceID,
		Host:       l.host,
		RequestID:  RequestIDFrom(ctx),
		TemplateID: TemplateIDFrom(ctx),
		Message:    message,
		Fields:     fields,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		l.out.Printf("ERROR: failed to marshal log entry: %v", err)
		return
	}
	l.out.Println(string(data))
}

func (l *Logger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.log(ctx, Debug, message, fields)
}

func (l *Logger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.log(ctx, Info, message, fields)
}

func (l *Logger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.log(ctx, Warn, message, fields)
}

func (l *Logger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	if err != nil {
		if fields == nil {
			fields = make(map[string]interface{}, 1)
		}
		fields["error"] = err.Error()
	}
	l.log(ctx, Error, message, fields)
}

// WithDuration logs an info message annotated with a duration in
// milliseconds, the convention handlers use for timing provider calls.
func (l *Logger) WithDuration(ctx context.Context, message string, d time.Duration, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{}, 1)
	}
	fields["duration_ms"] = float64(d.Microseconds()) / 1000.0
	l.Info(ctx, message, fields)
}
