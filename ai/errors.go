// Copyright 2025 Son Le
//
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


package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

var (
	// ErrLLMSettingsRequired is returned when LLM settings are not provided.
	ErrLLMSettingsRequired = errors.New("llm settings required")

	// ErrEmbeddingSettingsRequired is returned when embedding settings are not provided.
	ErrEmbeddingSettingsRequired = errors.New("embedding settings required")

	// ErrUnknownProvider is returned for a provider name with no implementation.
	ErrUnknownProvider = errors.New("unknown provider")
)

// transientMarkers are substrings of provider error messages that indicate a
// failure worth retrying.
var transientMarkers = []string{
	"timeout",
	"timed out",
	"rate limit",
	"too many requests",
	"429",
	"500",
	"502",
	"503",
	"connection refused",
	"connection reset",
	"temporarily unavailable",
}

// IsTransient reports whether a provider error is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, core.ErrGeneratorTransient) || errors.Is(err, core.ErrEmbeddingProvider) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ClassifyGeneratorError wraps a raw provider error into the generator error
// taxonomy: transient failures are retried by callers, fatal ones surfaced.
func ClassifyGeneratorError(err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return fmt.Errorf("%w: %w", core.ErrGeneratorTransient, err)
	}
	return fmt.Errorf("%w: %w", core.ErrGeneratorFatal, err)
}
