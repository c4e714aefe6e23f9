package auth

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

const maxEmailLength = 254 // RFC 5321

var (
	errEmailRequired   = errors.New("email address is required")
	errEmailTooLong    = errors.New("email address is too long")
	errEmailFormat     = errors.New("invalid email address format")
	errEmailDisposable = errors.New("disposable email addresses are not allowed")
)

var disposableDomains = map[string]bool{
	"tempmail.com":      true,
	"10minutemail.com":  true,
	"guerrillamail.com": true,
	"mailinator.com":    true,
	"throwaway.email":   true,
	"yopmail.com":       true,
}

var strictEmailRegex = regexp.MustCompile(`^[a-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)+$`)

// ValidateEmail checks that email is a single bare address suitable for use
// as a message recipient. Display names, angle brackets and line breaks are
// rejected since the address is written into mail headers.
func ValidateEmail(email string, strict bool, blockDisposable bool) error {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return errEmailRequired
	}
	if len(normalized) > maxEmailLength {
		return errEmailTooLong
	}
	if strings.ContainsAny(normalized, "\r\n<>") {
		return errEmailFormat
	}

	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Name != "" || addr.Address != normalized {
		return errEmailFormat
	}
	if strict && !strictEmailRegex.MatchString(normalized) {
		return errEmailFormat
	}
	if blockDisposable && disposableDomains[emailDomain(normalized)] {
		return errEmailDisposable
	}
	return nil
}

// NormalizeEmail lowercases and trims an address. Sessions and accounts are
// keyed by the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return email[at+1:]
}
