package service

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode"

	"evo-store/internal/model"
)

const (
	minPhoneDigits = 9
	maxPhoneDigits = 15

	orderNumberLength   = 8
	orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// normalizePhone keeps the digits of a phone number. Spaces, dashes, brackets
// and a leading plus are accepted as formatting.
func normalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '(', r == ')', r == '+', r == '.':
		default:
			return "", model.ErrInvalidPhone
		}
	}
	digits := b.String()
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", model.ErrInvalidPhone
	}
	return digits, nil
}

// phonesMatch compares normalised phone numbers in constant time.
func phonesMatch(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// normalizeEmail lower-cases and validates an address.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", model.ErrInvalidEmail
	}
	return email, nil
}

// normalizeOrderNumber upper-cases and trims a customer-typed order number.
func normalizeOrderNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// looksLikeOrderNumber reports whether a bot query should be matched against
// order numbers rather than phones.
func looksLikeOrderNumber(q string) bool {
	return strings.IndexFunc(q, unicode.IsLetter) >= 0
}

// newOrderNumber returns PREFIX-XXXXXXXX using an unambiguous alphabet.
func newOrderNumber(prefix string) (string, error) {
	buf := make([]byte, orderNumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate order number: %w", err)
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return prefix + "-" + string(buf), nil
}

type cartLine struct {
	productID string
	quantity  int
}

// validateCheckout checks the request shape and returns the cart with
// duplicate products merged, sorted by product id so stock rows are always
// locked in the same order.
func validateCheckout(req *model.CheckoutRequest) ([]cartLine, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, model.ValidationError("Order must contain at least one item")
	}

	merged := make(map[string]int, len(req.Items))
	for _, item := range req.Items {
		id := strings.TrimSpace(item.ProductID)
		if id == "" {
			return nil, model.ValidationError("Product ID is required for every item")
		}
		if item.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		merged[id] += item.Quantity
	}

	sh := &req.Shipping
	for _, f := range []struct {
		value *string
		name  string
	}{
		{&sh.Name, "name"},
		{&sh.Address, "address"},
		{&sh.City, "city"},
		{&sh.Postcode, "postcode"},
	} {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			return nil, model.ValidationError("Shipping " + f.name + " is required")
		}
	}

	phone, err := normalizePhone(sh.Phone)
	if err != nil {
		return nil, err
	}
	sh.Phone = phone

	if sh.Email != nil {
		if strings.TrimSpace(*sh.Email) == "" {
			sh.Email = nil
		} else {
			email, err := normalizeEmail(*sh.Email)
			if err != nil {
				return nil, err
			}
			sh.Email = &email
		}
	}

	lines := make([]cartLine, 0, len(merged))
	for id, qty := range merged {
		lines = append(lines, cartLine{productID: id, quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].productID < lines[j].productID })

	return lines, nil
}
