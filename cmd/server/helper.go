package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jack-landon/dapper-app/internal/registry"
)

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
}

// resolveToken accepts a token symbol or contract address.
func (s *Server) resolveToken(ref string) (registry.Token, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return registry.Token{}, false
	}
	if t, ok := s.registry.TokenBySymbol(ref); ok {
		return t, true
	}
	return s.registry.TokenByAddress(ref)
}

// lockSeconds resolves the lock window from a preset label, explicit
// seconds, or a custom value/unit pair, in that order of precedence.
func (s *Server) lockSeconds(label string, seconds int64, value float64, unit string) (int64, error) {
	if label != "" {
		if d, ok := s.registry.DurationByLabel(label); ok {
			return d.Seconds, nil
		}
		return 0, fmt.Errorf("unknown duration: %s", label)
	}
	if seconds > 0 {
		return seconds, nil
	}
	if value > 0 {
		if sec := registry.CustomSeconds(value, registry.CustomUnit(unit)); sec > 0 {
			return sec, nil
		}
	}
	return 0, fmt.Errorf("missing lock duration")
}

func parsePositiveInt(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid value: %s", raw)
	}
	return n, nil
}

func parsePositiveFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid value: %s", raw)
	}
	return f, nil
}

func explorerTxURL(base, txHash string) string {
	if base == "" || txHash == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/tx/" + txHash
}
