package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
)

// SchemaError is a structured loader error with an optional location.
type SchemaError struct {
	Code     ErrorCode
	Message  string
	Location string // file path or URL
	Cause    error
}

func (e *SchemaError) Error() string { return e.Message }
func (e *SchemaError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }

// document is the on-disk shape of a native schema file (YAML or JSON).
type document struct {
	Version string                    `yaml:"version"`
	Types   map[string]documentType   `yaml:"types"`
	Methods map[string]documentMethod `yaml:"methods"`
}

type documentType struct {
	Description string          `yaml:"description"`
	Fields      []documentField `yaml:"fields"`
	OneOf       []string        `yaml:"oneof"`
}

type documentMethod struct {
	Description string          `yaml:"description"`
	Params      []documentField `yaml:"params"`
	Returns     string          `yaml:"returns"`
}

type documentField struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Required    bool   `yaml:"required"`
	Description string `yaml:"description"`
}

// Load reads a native schema document and builds a Store. input may be a
// filesystem path or an http/https URL. The Store is fully parsed (every
// type expression string is converted to a TypeExpr) but not resolved;
// reference checking belongs to the resolver.
func Load(ctx context.Context, input string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SchemaError{Code: InputError, Message: "schema: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	raw, location, err := readInput(ctx, input, settings)
	if err != nil {
		return nil, err
	}
	return Parse(raw, location)
}

// Parse builds a Store from raw native-document bytes. location is used in
// error messages only.
func Parse(raw []byte, location string) (*Store, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &SchemaError{Code: ParseError, Message: fmt.Sprintf("parse schema: %v", err), Location: location, Cause: err}
	}
	if len(doc.Types) == 0 && len(doc.Methods) == 0 {
		return nil, &SchemaError{Code: ValidationError, Message: "schema: document declares no types and no methods", Location: location}
	}

	store := &Store{
		Version: strings.TrimSpace(doc.Version),
		Types:   make(map[string]*TypeSchema, len(doc.Types)),
		Methods: make(map[string]*MethodSchema, len(doc.Methods)),
	}

	for name, dt := range doc.Types {
		name = strings.TrimSpace(name)
		if !isIdent(name) {
			return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: invalid type name %q", name), Location: location}
		}
		if len(dt.OneOf) > 0 && len(dt.Fields) > 0 {
			return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: type %s declares both fields and oneof", name), Location: location}
		}
		ts := &TypeSchema{Name: name, Description: strings.TrimSpace(dt.Description)}
		for _, v := range dt.OneOf {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			ts.Variants = append(ts.Variants, v)
		}
		fields, err := parseFields(dt.Fields, "type "+name, location)
		if err != nil {
			return nil, err
		}
		ts.Fields = fields
		store.Types[name] = ts
	}

	for name, dm := range doc.Methods {
		name = strings.TrimSpace(name)
		if !isIdent(name) {
			return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: invalid method name %q", name), Location: location}
		}
		if strings.TrimSpace(dm.Returns) == "" {
			return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: method %s has no return type", name), Location: location}
		}
		ret, err := ParseTypeExpr(dm.Returns)
		if err != nil {
			return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: method %s returns: %v", name, err), Location: location, Cause: err}
		}
		params, err := parseFields(dm.Params, "method "+name, location)
		if err != nil {
			return nil, err
		}
		ms := &MethodSchema{
			Name:        name,
			Description: strings.TrimSpace(dm.Description),
			Params:      params,
			Returns:     ret,
		}
		for _, p := range ms.Params {
			if p.Type.ContainsFile() {
				ms.HasAttachment = true
				break
			}
		}
		store.Methods[name] = ms
	}

	store.TypeNames = sortedKeys(store.Types)
	store.MethodNames = sortedKeys(store.Methods)
	return store, nil
}

func parseFields(raw []documentField, owner, location string) ([]FieldSpec, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]FieldSpec, 0, len(raw))
	for _, df := range raw {
		name := strings.TrimSpace(df.Name)
		if name == "" {
			return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: %s has a field with no name", owner), Location: location}
		}
		if _, dup := seen[name]; dup {
			return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: %s declares field %q twice", owner, name), Location: location}
		}
		seen[name] = struct{}{}
		expr, err := ParseTypeExpr(df.Type)
		if err != nil {
			return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: %s field %q: %v", owner, name, err), Location: location, Cause: err}
		}
		out = append(out, FieldSpec{
			Name:        name,
			Type:        expr,
			Required:    df.Required,
			Description: strings.TrimSpace(df.Description),
		})
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func readInput(ctx context.Context, input string, settings Settings) ([]byte, string, error) {
	u, uerr := url.Parse(input)
	isURL := uerr == nil && u.Scheme != "" && u.Host != ""

	if isURL {
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return nil, "", &SchemaError{Code: InputError, Message: fmt.Sprintf("schema: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		raw, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, "", &SchemaError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		return raw, input, nil
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, "", &SchemaError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, "", &SchemaError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return raw, abs, nil
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err == nil && resp.StatusCode < 300 {
			defer resp.Body.Close()
			return io.ReadAll(resp.Body)
		}
		if err != nil {
			lastErr = err
		} else {
			defer resp.Body.Close()
			if resp.StatusCode >= 500 || resp.StatusCode == 429 {
				lastErr = fmt.Errorf("transient http error %d", resp.StatusCode)
			} else {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}
