package model

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveNamespace(t *testing.T) {
	t.Parallel()

	t.Run("deterministic for the same URL", func(t *testing.T) {
		t.Parallel()

		first, err := ResolveNamespace("https://example.com/docs", ScopeURL)
		if err != nil {
			t.Fatalf("ResolveNamespace() error = %v", err)
		}
		second, err := ResolveNamespace("https://example.com/docs", ScopeURL)
		if err != nil {
			t.Fatalf("ResolveNamespace() error = %v", err)
		}
		if first != second {
			t.Errorf("namespaces differ for identical input: %q vs %q", first, second)
		}
	})

	t.Run("distinct URLs get distinct namespaces", func(t *testing.T) {
		t.Parallel()

		a, err := ResolveNamespace("https://example.com/docs", ScopeURL)
		if err != nil {
			t.Fatalf("ResolveNamespace() error = %v", err)
		}
		b, err := ResolveNamespace("https://example.com/pricing", ScopeURL)
		if err != nil {
			t.Fatalf("ResolveNamespace() error = %v", err)
		}
		if a == b {
			t.Errorf("distinct URLs share namespace %q", a)
		}
	})

	t.Run("domain scope unifies pages of one site", func(t *testing.T) {
		t.Parallel()

		a, err := ResolveNamespace("https://example.com/docs", ScopeDomain)
		if err != nil {
			t.Fatalf("ResolveNamespace() error = %v", err)
		}
		b, err := ResolveNamespace("https://example.com/pricing", ScopeDomain)
		if err != nil {
			t.Fatalf("ResolveNamespace() error = %v", err)
		}
		if a != b {
			t.Errorf("same-domain pages got different namespaces: %q vs %q", a, b)
		}
	})

	t.Run("namespace embeds a sanitized host label", func(t *testing.T) {
		t.Parallel()

		ns, err := ResolveNamespace("https://Docs.Example.com:8443/guide", ScopeURL)
		if err != nil {
			t.Fatalf("ResolveNamespace() error = %v", err)
		}
		if !strings.HasPrefix(string(ns), "docs-example-com-8443-") {
			t.Errorf("namespace = %q, want sanitized host prefix", ns)
		}
	})

	t.Run("invalid input rejected", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{
			"",
			"not a url",
			"ftp://example.com/file",
			"/relative/only",
			"example.com/no-scheme",
		} {
			if _, err := ResolveNamespace(raw, ScopeURL); !errors.Is(err, ErrInvalidURL) {
				t.Errorf("ResolveNamespace(%q) error = %v, want ErrInvalidURL", raw, err)
			}
		}
	})
}
