package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/atlanticdynamic/builtinmcp/internal/interpolation"
	"github.com/atlanticdynamic/builtinmcp/internal/logging"
	"github.com/atlanticdynamic/builtinmcp/internal/toolset"
	"golang.org/x/net/http/httpguts"
)

// Validate expands environment references in place, then checks every
// section and returns all problems joined.
func (c *Config) Validate() error {
	if err := interpolation.InterpolateStruct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInterpolation, err)
	}

	var errs []error
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level))
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidLogFormat, err))
	}
	if err := c.WebSearch.Validate(); err != nil {
		errs = append(errs, err)
	}
	for capability, policy := range c.Permissions {
		if _, err := toolset.ParsePolicy(policy); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrInvalidPermission, capability, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks the websearch section. Header names and values must be
// legal HTTP header fields.
func (w *WebSearch) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidWebSearch, fmt.Sprintf(format, args...)))
	}

	u, err := url.Parse(w.BaseURL)
	switch {
	case err != nil:
		fail("base_url: %v", err)
	case u.Scheme != "http" && u.Scheme != "https":
		fail("base_url must be http or https, got %q", w.BaseURL)
	case u.Host == "":
		fail("base_url has no host: %q", w.BaseURL)
	}

	if !httpguts.ValidHeaderFieldName(w.APIKeyHeader) {
		fail("api_key_header is not a valid header name: %q", w.APIKeyHeader)
	}
	if !httpguts.ValidHeaderFieldValue(w.APIKey) {
		fail("api_key contains characters not allowed in a header")
	}
	for name, value := range w.Headers {
		if !httpguts.ValidHeaderFieldName(name) {
			fail("headers: invalid name %q", name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			fail("headers: invalid value for %q", name)
		}
	}

	if w.Timeout <= 0 {
		fail("timeout must be positive")
	}
	if w.ImageTimeout <= 0 {
		fail("image_timeout must be positive")
	}
	if w.MaxResults < 1 || w.MaxResults > MaxResultsLimit {
		fail("max_results must be between 1 and %d, got %d", MaxResultsLimit, w.MaxResults)
	}
	if w.MaxImages < 1 || w.MaxImages > MaxImagesLimit {
		fail("max_images must be between 1 and %d, got %d", MaxImagesLimit, w.MaxImages)
	}
	if w.MaxImageBytes <= 0 {
		fail("max_image_bytes must be positive")
	}
	return errors.Join(errs...)
}

// Gate builds the access gate from the [permissions] table. Unlisted
// capabilities are allowed.
func (c *Config) Gate() (*toolset.PolicyGate, error) {
	gate := &toolset.PolicyGate{
		Policies: make(map[string]toolset.Policy, len(c.Permissions)),
		Default:  toolset.PolicyAllow,
	}
	var errs []error
	for capability, raw := range c.Permissions {
		p, err := toolset.ParsePolicy(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrInvalidPermission, capability, err))
			continue
		}
		gate.Policies[capability] = p
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return gate, nil
}
