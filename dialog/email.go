package dialog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"strings"
	"time"
)

// mxTimeout caps the DNS part of validation so a slow resolver never stalls
// the chat. A lookup that times out counts as valid; only a definitive
// not-found rejects.
const mxTimeout = 2 * time.Second

// ValidationError reports a user-correctable input problem. The handler that
// raised it keeps the conversation in place and asks again.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "dialog: invalid input: " + e.Reason
}

// Code returns a stable identifier for log classification.
func (e *ValidationError) Code() string { return "VALIDATION_ERROR" }

// ValidateEmail checks addr syntactically and then probes the domain for MX
// (falling back to A/AAAA) records. It returns *ValidationError for a bad
// address and nil when the address is acceptable.
func ValidateEmail(ctx context.Context, addr string) error {
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return &ValidationError{Reason: "malformed address"}
	}
	_, domain, found := strings.Cut(addr, "@")
	if !found || domain == "" {
		return &ValidationError{Reason: "missing domain"}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, mxTimeout)
	defer cancel()

	var resolver net.Resolver
	if _, err := resolver.LookupMX(lookupCtx, domain); err == nil {
		return nil
	} else if definitiveNotFound(err) {
		// No MX is still deliverable when the domain itself resolves.
		if _, err := resolver.LookupHost(lookupCtx, domain); err == nil {
			return nil
		} else if definitiveNotFound(err) {
			return &ValidationError{Reason: fmt.Sprintf("domain %s not found", domain)}
		}
	}
	// Resolver trouble is not the user's fault; accept the address.
	return nil
}

// definitiveNotFound distinguishes "the domain does not exist" from resolver
// timeouts and server failures.
func definitiveNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}
