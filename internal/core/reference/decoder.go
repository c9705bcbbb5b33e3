// Package reference decodes the payment reference strings that pack one or
// more invoices into a single gateway transaction.
//
// Accepted encodings, after any "-ABONO-DD-MM-YYYY_HH-MM" partial-payment
// suffix is removed:
//
//	NIT-<customer>-FAV-<token>[-<token>...]   invoice batch
//	<token>                                   single invoice
//
// where a token is <invoice>[_<value>][_DP-<discount>] and <invoice> may carry
// an invoice-series prefix such as "FAC". Older references spell the discount
// separator "-DP-".
package reference

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"payment-reconciler/internal/core/domain"

	"github.com/shopspring/decimal"
)

const (
	nitPrefix         = "NIT-"
	batchTag          = "FAV"
	discountSep       = "_DP-"
	legacyDiscountSep = "-DP-"
	discountSuffix    = "_DP"
	valueSep          = "_"
	segmentSep        = "-"
)

// DefaultSeriesPrefix is the invoice-series tag used by the billing system.
const DefaultSeriesPrefix = "FAC"

var partialPaymentSuffix = regexp.MustCompile(`-ABONO-\d{2}-\d{2}-\d{4}_\d{2}-\d{2}`)

// Reason identifies why a reference could not be decoded.
type Reason string

const (
	ReasonEmpty                Reason = "empty_reference"
	ReasonEmptyBatch           Reason = "empty_batch"
	ReasonAmbiguousBatch       Reason = "ambiguous_batch"
	ReasonInvalidInvoiceNumber Reason = "invalid_invoice_number"
)

// DecodeError is returned for every decoding failure.
type DecodeError struct {
	Reason    Reason
	Reference string
	Token     string
	Err       error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode reference %q: %s", e.Reference, e.Reason)
	if e.Token != "" {
		msg += fmt.Sprintf(" (token %q)", e.Token)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsReason reports whether err is a DecodeError with the given reason.
func IsReason(err error, reason Reason) bool {
	var de *DecodeError
	return errors.As(err, &de) && de.Reason == reason
}

// Layout tells how the reference was segmented.
type Layout string

const (
	LayoutSingle Layout = "single"
	LayoutBatch  Layout = "batch"
)

// Segmentation is the raw token split of a reference, before any numeric parsing.
type Segmentation struct {
	Reference  string
	CustomerID string
	Layout     Layout
	Tokens     []string
}

// Decoded is a fully parsed reference.
type Decoded struct {
	Reference  string
	CustomerID string
	Layout     Layout
	Tokens     []domain.ReferenceToken
}

// Decoder parses references. The zero value strips no series prefix.
type Decoder struct {
	seriesPrefixes []string
}

// NewDecoder returns a decoder that strips the given invoice-series prefixes.
func NewDecoder(seriesPrefixes ...string) *Decoder {
	prefixes := make([]string, 0, len(seriesPrefixes))
	for _, p := range seriesPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &Decoder{seriesPrefixes: prefixes}
}

// StripPartialPayment removes every partial-payment date suffix.
func StripPartialPayment(reference string) string {
	return partialPaymentSuffix.ReplaceAllString(reference, "")
}

// CustomerID returns the segment after "NIT-", or "" for references without it.
func CustomerID(reference string) string {
	if !strings.HasPrefix(reference, nitPrefix) {
		return ""
	}
	rest := reference[len(nitPrefix):]
	if i := strings.Index(rest, segmentSep); i >= 0 {
		return rest[:i]
	}
	return rest
}

// batchSegments returns the segments after "NIT-<customer>-FAV-" and whether
// the reference uses the batch layout at all. The legacy "-DP-" separator is
// rewritten to "_DP-" first so it splits like the current one.
func batchSegments(reference string) ([]string, bool) {
	if !strings.HasPrefix(reference, nitPrefix) {
		return nil, false
	}
	parts := strings.Split(strings.ReplaceAll(reference, legacyDiscountSep, discountSep), segmentSep)
	if len(parts) < 3 || parts[2] != batchTag {
		return nil, false
	}
	return parts[3:], true
}

// Tokenize splits a reference into raw invoice tokens as the webhook path
// reads them. Batch segments are re-joined in pairs, which restores tokens
// whose discount suffix ("_DP-0") was cut by the outer split. An odd number of
// batch segments greater than one cannot be paired unambiguously and is
// rejected.
func (d *Decoder) Tokenize(reference string) (*Segmentation, error) {
	ref := strings.TrimSpace(StripPartialPayment(reference))
	if ref == "" {
		return nil, &DecodeError{Reason: ReasonEmpty, Reference: reference}
	}

	seg := &Segmentation{Reference: ref, CustomerID: CustomerID(ref), Layout: LayoutSingle}

	rest, ok := batchSegments(ref)
	if !ok {
		seg.Tokens = []string{ref}
		return seg, nil
	}

	seg.Layout = LayoutBatch
	switch {
	case len(rest) == 0:
		return nil, &DecodeError{Reason: ReasonEmptyBatch, Reference: reference}
	case len(rest) == 1:
		seg.Tokens = rest
	case len(rest)%2 == 0:
		seg.Tokens = make([]string, 0, len(rest)/2)
		for i := 0; i < len(rest); i += 2 {
			seg.Tokens = append(seg.Tokens, rest[i]+segmentSep+rest[i+1])
		}
	default:
		return nil, &DecodeError{
			Reason:    ReasonAmbiguousBatch,
			Reference: reference,
			Err:       fmt.Errorf("%d segments after %s", len(rest), batchTag),
		}
	}
	return seg, nil
}

// Decode is the webhook-path decoder: Tokenize followed by ParseToken on every token.
func (d *Decoder) Decode(reference string, defaultValue decimal.Decimal) (*Decoded, error) {
	seg, err := d.Tokenize(reference)
	if err != nil {
		return nil, err
	}

	out := &Decoded{
		Reference:  seg.Reference,
		CustomerID: seg.CustomerID,
		Layout:     seg.Layout,
		Tokens:     make([]domain.ReferenceToken, 0, len(seg.Tokens)),
	}
	for _, raw := range seg.Tokens {
		tok, err := d.parse(raw, defaultValue, true)
		if err != nil {
			err.Reference = reference
			return nil, err
		}
		out.Tokens = append(out.Tokens, tok)
	}
	return out, nil
}

// DecodeConfirmation is the confirmation-path decoder. Every batch segment is
// one "invoice_value" pair; discount suffixes are recognised only so they can
// be dropped, and every token carries a zero discount.
func (d *Decoder) DecodeConfirmation(reference string, defaultValue decimal.Decimal) (*Decoded, error) {
	ref := strings.TrimSpace(StripPartialPayment(reference))
	if ref == "" {
		return nil, &DecodeError{Reason: ReasonEmpty, Reference: reference}
	}

	out := &Decoded{Reference: ref, CustomerID: CustomerID(ref), Layout: LayoutSingle}

	raws := []string{ref}
	if rest, ok := batchSegments(ref); ok {
		if len(rest) == 0 {
			return nil, &DecodeError{Reason: ReasonEmptyBatch, Reference: reference}
		}
		out.Layout = LayoutBatch
		raws = raws[:0]
		for i := 0; i < len(rest); i++ {
			segment := rest[i]
			if base, found := strings.CutSuffix(segment, discountSuffix); found {
				segment = base
				if i+1 < len(rest) && isDiscountSegment(rest[i+1]) {
					i++
				}
			}
			raws = append(raws, segment)
		}
	}

	out.Tokens = make([]domain.ReferenceToken, 0, len(raws))
	for _, raw := range raws {
		tok, err := d.parse(raw, defaultValue, false)
		if err != nil {
			err.Reference = reference
			return nil, err
		}
		out.Tokens = append(out.Tokens, tok)
	}
	return out, nil
}

// ParseToken decodes a single raw token.
func (d *Decoder) ParseToken(raw string, defaultValue decimal.Decimal) (domain.ReferenceToken, error) {
	tok, err := d.parse(raw, defaultValue, true)
	if err != nil {
		return domain.ReferenceToken{}, err
	}
	return tok, nil
}

func (d *Decoder) parse(raw string, defaultValue decimal.Decimal, withDiscount bool) (domain.ReferenceToken, *DecodeError) {
	tok := domain.ReferenceToken{Raw: raw, InvoiceValue: defaultValue, Discount: decimal.Zero}

	head := raw
	if left, right, ok := cutDiscount(raw); ok {
		head = left
		if withDiscount {
			tok.Discount = parseAmount(right, decimal.Zero)
		}
	}

	invoice := head
	if inv, value, ok := strings.Cut(head, valueSep); ok {
		invoice = inv
		tok.InvoiceValue = parseAmount(value, defaultValue)
	}

	n, err := d.parseInvoiceNumber(invoice)
	if err != nil {
		return domain.ReferenceToken{}, &DecodeError{Reason: ReasonInvalidInvoiceNumber, Token: raw, Err: err}
	}
	tok.InvoiceNumber = n
	return tok, nil
}

func (d *Decoder) parseInvoiceNumber(s string) (int64, error) {
	s = strings.TrimSpace(s)
	for _, p := range d.seriesPrefixes {
		if len(s) > len(p) && strings.EqualFold(s[:len(p)], p) {
			s = s[len(p):]
			break
		}
	}
	if !isNumeric(s) {
		return 0, fmt.Errorf("invoice number %q is not numeric", s)
	}
	return strconv.ParseInt(s, 10, 64)
}

func cutDiscount(raw string) (string, string, bool) {
	if left, right, ok := strings.Cut(raw, discountSep); ok {
		return left, right, true
	}
	return strings.Cut(raw, legacyDiscountSep)
}

func parseAmount(s string, fallback decimal.Decimal) decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return v
}

// isDiscountSegment reports whether s is the amount that followed a "_DP-"
// separator: a number, optionally trailed by "_" and marker fields such as
// "0_APP_EVA_CMPY_01".
func isDiscountSegment(s string) bool {
	amount, _, _ := strings.Cut(s, valueSep)
	_, err := decimal.NewFromString(amount)
	return err == nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
