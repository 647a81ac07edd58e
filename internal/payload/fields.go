package payload

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	apperrors "github.com/jafarshop/orderhook/pkg/errors"
)

// OrderFields is the canonical order representation extracted from a
// normalized payload, whatever the upstream form builder called things
type OrderFields struct {
	ClientName      string  `validate:"max=255"`
	ClientPhone     string  `validate:"required,e164_loose"`
	ClientCity      string  `validate:"max=255"`
	ClientAddress   string  `validate:"max=1000"`
	ProductName     string  `validate:"required,max=255"`
	Quantity        int     `validate:"min=1,max=10000"`
	UnitPrice       float64 `validate:"min=0"`
	TotalAmount     float64
	Notes           string `validate:"max=2000"`
	ExternalOrderID string `validate:"max=255"`
}

// Loose E.164: optional +, digits with common separators, 7-20 chars
var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,18}[0-9]$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("e164_loose", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

var (
	sanitizePolicy   = bluemonday.StrictPolicy()
	sanitizeReplacer = strings.NewReplacer(
		"<", "", ">", "", `"`, "", "'", "",
		"&lt;", "", "&gt;", "", "&#34;", "", "&#39;", "",
		"&amp;", "&",
	)
)

// Sanitize strips HTML, angle brackets, and quote characters from a
// user-supplied string and trims surrounding whitespace. This is one
// defensive layer, not a substitute for output encoding downstream.
func Sanitize(s string) string {
	s = sanitizePolicy.Sanitize(s)
	s = sanitizeReplacer.Replace(s)
	return strings.TrimSpace(s)
}

// accessor pulls one candidate value out of a normalized tree
type accessor func(Tree) string

// byPath reads the scalar at the given path
func byPath(path ...string) accessor {
	return func(t Tree) string {
		return t.GetString(path...)
	}
}

// joined concatenates the non-empty results of parts with a space,
// used for split first/last name and address line pairs
func joined(parts ...accessor) accessor {
	return func(t Tree) string {
		var found []string
		for _, part := range parts {
			if v := strings.TrimSpace(part(t)); v != "" {
				found = append(found, v)
			}
		}
		return strings.Join(found, " ")
	}
}

// chain evaluates candidates in order and returns the first non-empty
// result. The ordered-fallback chain is what lets a single endpoint
// serve unrelated form builders without per-integration code paths.
func chain(candidates ...accessor) accessor {
	return func(t Tree) string {
		for _, candidate := range candidates {
			if v := strings.TrimSpace(candidate(t)); v != "" {
				return v
			}
		}
		return ""
	}
}

// Candidate chains per canonical field. Aliases cover our own historic
// key names, generic form-builder nesting, and WooCommerce-style
// billing/line-item payloads.
var (
	phoneChain = chain(
		byPath("phone"),
		byPath("client_phone"),
		byPath("form", "fields", "phone"),
		byPath("fields", "phone"),
		byPath("billing_phone"),
		byPath("billing", "phone"),
	)
	nameChain = chain(
		byPath("name"),
		byPath("client_name"),
		byPath("form", "fields", "name"),
		byPath("fields", "name"),
		joined(byPath("billing_first_name"), byPath("billing_last_name")),
		joined(byPath("billing", "first_name"), byPath("billing", "last_name")),
	)
	cityChain = chain(
		byPath("city"),
		byPath("client_city"),
		byPath("form", "fields", "city"),
		byPath("fields", "city"),
		byPath("billing_city"),
		byPath("billing", "city"),
	)
	addressChain = chain(
		byPath("address"),
		byPath("client_address"),
		byPath("form", "fields", "address"),
		byPath("fields", "address"),
		joined(byPath("billing_address_1"), byPath("billing_address_2")),
		joined(byPath("billing", "address_1"), byPath("billing", "address_2")),
	)
	productChain = chain(
		byPath("product_name"),
		byPath("product"),
		byPath("form_name"),
		byPath("form", "fields", "product"),
		byPath("fields", "product"),
		byPath("line_items", "0", "name"),
	)
	quantityChain = chain(
		byPath("quantity"),
		byPath("form", "fields", "quantity"),
		byPath("fields", "quantity"),
		byPath("line_items", "0", "quantity"),
	)
	unitPriceChain = chain(
		byPath("unit_price"),
		byPath("price"),
		byPath("form", "fields", "price"),
		byPath("fields", "price"),
		byPath("line_items", "0", "price"),
	)
	totalChain = chain(
		byPath("total_amount"),
		byPath("total"),
		byPath("order_total"),
	)
	notesChain = chain(
		byPath("notes"),
		byPath("order_notes"),
		byPath("customer_note"),
		byPath("form", "fields", "notes"),
		byPath("fields", "notes"),
	)
	externalIDChain = chain(
		byPath("id"),
		byPath("order_id"),
		byPath("order_number"),
	)
)

// Resolve extracts and sanitizes the canonical order fields from a
// normalized tree. Missing quantity defaults to 1; an unparsable
// quantity resolves to 0 so Validate rejects it rather than masking
// the upstream bug.
func Resolve(tree Tree) OrderFields {
	fields := OrderFields{
		ClientName:      Sanitize(nameChain(tree)),
		ClientPhone:     strings.TrimSpace(phoneChain(tree)),
		ClientCity:      Sanitize(cityChain(tree)),
		ClientAddress:   Sanitize(addressChain(tree)),
		ProductName:     Sanitize(productChain(tree)),
		Notes:           Sanitize(notesChain(tree)),
		ExternalOrderID: Sanitize(externalIDChain(tree)),
	}

	fields.Quantity = parseQuantity(quantityChain(tree))
	fields.UnitPrice = parseAmount(unitPriceChain(tree))

	total := parseAmount(totalChain(tree))
	if total > 0 {
		fields.TotalAmount = total
	} else {
		fields.TotalAmount = fields.UnitPrice * float64(fields.Quantity)
	}

	return fields
}

func parseQuantity(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	return 0
}

func parseAmount(raw string) float64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// Validate enforces minimum data quality before any persistence is
// attempted. The first failing field produces one human-readable
// message; there is no partial acceptance.
func (f OrderFields) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return &apperrors.ErrValidation{Field: "payload", Message: "invalid payload"}
	}

	first := errs[0]
	switch first.StructField() {
	case "ClientPhone":
		return &apperrors.ErrValidation{
			Field:   "client_phone",
			Message: "missing or invalid client phone number",
		}
	case "ProductName":
		return &apperrors.ErrValidation{
			Field:   "product_name",
			Message: "product name is required",
		}
	case "Quantity":
		return &apperrors.ErrValidation{
			Field:   "quantity",
			Message: "quantity must be between 1 and 10000",
		}
	case "UnitPrice":
		return &apperrors.ErrValidation{
			Field:   "unit_price",
			Message: "unit price must not be negative",
		}
	default:
		return &apperrors.ErrValidation{
			Field:   first.StructField(),
			Message: "invalid value for " + first.StructField(),
		}
	}
}
