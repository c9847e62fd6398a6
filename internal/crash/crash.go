/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns panics escaping the CLI into a logged error, a report
// file and a non-zero exit.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	applog "gominimap/internal/log"
	"gominimap/internal/version"
)

// Env vars for the opt-in crash upload.
const (
	EnvUploadOptIn = "GMM_CRASH_UPLOAD_OPT_IN"
	EnvUploadURL   = "GMM_CRASH_UPLOAD_URL"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Context describes what the process was doing when it crashed. Dir is where
// the report goes; empty means os.TempDir().
type Context struct {
	Dir     string
	Diagram string
	Command string
}

// Recover captures a panic, logs it with its stack, writes a report file and
// exits with status 2.
//
// Usage: defer crash.Recover(&crash.Context{...})
func Recover(c *Context) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, err := writeReport(c, r, stack)
		if err != nil {
			l.Error("write crash report failed", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

func writeReport(c *Context, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if c != nil && c.Dir != "" {
		dir = c.Dir
		_ = os.MkdirAll(dir, 0o755)
	}
	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "GoMinimap Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if c != nil {
		if c.Command != "" {
			_, _ = fmt.Fprintf(&buf, "Command: %s\n", c.Command)
		}
		if c.Diagram != "" {
			_, _ = fmt.Fprintf(&buf, "Diagram: %s\n", c.Diagram)
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	upload(buf.Bytes())
	return path, nil
}

// upload posts the report when the user opted in and a URL is configured.
// Failures are logged and otherwise ignored.
func upload(report []byte) {
	opt := strings.ToLower(strings.TrimSpace(os.Getenv(EnvUploadOptIn)))
	url := strings.TrimSpace(os.Getenv(EnvUploadURL))
	if url == "" || (opt != "1" && opt != "true" && opt != "yes" && opt != "on") {
		return
	}
	cli := &http.Client{Timeout: 1500 * time.Millisecond}
	resp, err := cli.Post(url, "text/plain; charset=utf-8", bytes.NewReader(report))
	if err != nil {
		applog.WithComponent("crash").Warn("crash upload failed", slog.Any("err", err))
		return
	}
	_ = resp.Body.Close()
}
