// Copyright 2024 The Authors (see AUTHORS file)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package common contains types and helpers shared across the ffizer
// pipeline packages. It's named this way to avoid colliding with "errors"
// (stdlib), "error" (a builtin type), and "err" (a common variable name).
package common

import "fmt"

// UnknownVarError is returned when a template references a variable that
// isn't defined anywhere in the current scope.
type UnknownVarError struct {
	VarName       string
	AvailableVars []string
	Wrapped       error
}

func (e *UnknownVarError) Error() string {
	return fmt.Sprintf("the template referenced a nonexistent variable name %q; available variable names are %v",
		e.VarName, e.AvailableVars)
}

func (e *UnknownVarError) Unwrap() error { return e.Wrapped }

func (e *UnknownVarError) Is(other error) bool {
	_, ok := other.(*UnknownVarError)
	return ok
}

// ImportCycleError is returned when a template's imports form a cycle.
type ImportCycleError struct {
	Cycle []string // URIs, in the order visited, ending with the URI that closes the cycle
}

func (e *ImportCycleError) Error() string {
	return fmt.Sprintf("import cycle detected: %v", e.Cycle)
}

func (e *ImportCycleError) Is(other error) bool {
	_, ok := other.(*ImportCycleError)
	return ok
}

// SourceNotFoundError is returned when a template source (local path or git
// URI) could not be resolved to any content.
type SourceNotFoundError struct {
	Source  string
	Wrapped error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("template source %q could not be found: %v", e.Source, e.Wrapped)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Wrapped }

func (e *SourceNotFoundError) Is(other error) bool {
	_, ok := other.(*SourceNotFoundError)
	return ok
}

// SubfolderMissingError is returned when an import names a subfolder that
// doesn't exist within the resolved source.
type SubfolderMissingError struct {
	URI       string
	Subfolder string
}

func (e *SubfolderMissingError) Error() string {
	return fmt.Sprintf("subfolder %q does not exist in %q", e.Subfolder, e.URI)
}

func (e *SubfolderMissingError) Is(other error) bool {
	_, ok := other.(*SubfolderMissingError)
	return ok
}

// RenderError wraps a failure that occurred while rendering a path name or
// file body, identifying which template file was at fault.
type RenderError struct {
	Path    string
	Wrapped error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed rendering %q: %v", e.Path, e.Wrapped)
}

func (e *RenderError) Unwrap() error { return e.Wrapped }

func (e *RenderError) Is(other error) bool {
	_, ok := other.(*RenderError)
	return ok
}

// HelperFailureError is returned when a template helper function (e.g.
// http_get, file_exists) fails at render time.
type HelperFailureError struct {
	Helper  string
	Wrapped error
}

func (e *HelperFailureError) Error() string {
	return fmt.Sprintf("helper %q failed: %v", e.Helper, e.Wrapped)
}

func (e *HelperFailureError) Unwrap() error { return e.Wrapped }

func (e *HelperFailureError) Is(other error) bool {
	_, ok := other.(*HelperFailureError)
	return ok
}

// UserAbortedError is returned when the user chooses quit at a confirmation
// prompt during plan execution.
type UserAbortedError struct{}

func (e *UserAbortedError) Error() string { return "aborted by user" }

func (e *UserAbortedError) Is(other error) bool {
	_, ok := other.(*UserAbortedError)
	return ok
}

// ExitCodeError lets a Run() function request a specific process exit code,
// to be unwrapped in main().
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d: %v", e.Code, e.Err)
}

func (e *ExitCodeError) Unwrap() error { return e.Err }
