package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jafarshop/orderhook/pkg/errors"
)

func mustNormalize(t *testing.T, body, contentType string) Tree {
	t.Helper()
	tree, err := Normalize([]byte(body), contentType)
	require.NoError(t, err)
	return tree
}

func TestResolve_SameFieldsAcrossTransports(t *testing.T) {
	jsonTree := mustNormalize(t,
		`{"phone":"+962791234567","name":"Rana","product_name":"Argan Oil","quantity":"2"}`,
		"application/json")
	flatTree := mustNormalize(t,
		"phone=%2B962791234567&name=Rana&product_name=Argan+Oil&quantity=2",
		"application/x-www-form-urlencoded")
	nestedTree := mustNormalize(t,
		"form%5Bfields%5D%5Bphone%5D=%2B962791234567&form%5Bfields%5D%5Bname%5D=Rana&form%5Bfields%5D%5Bproduct%5D=Argan+Oil&form%5Bfields%5D%5Bquantity%5D=2",
		"application/x-www-form-urlencoded")

	want := Resolve(jsonTree)
	assert.Equal(t, "+962791234567", want.ClientPhone)
	assert.Equal(t, "Rana", want.ClientName)
	assert.Equal(t, "Argan Oil", want.ProductName)
	assert.Equal(t, 2, want.Quantity)

	assert.Equal(t, want, Resolve(flatTree))
	assert.Equal(t, want, Resolve(nestedTree))
}

func TestResolve_WooCommerceAliases(t *testing.T) {
	tree := mustNormalize(t, `{
		"order_id": "wc-10042",
		"billing_phone": "+962791234567",
		"billing_first_name": "Omar",
		"billing_last_name": "Haddad",
		"billing_city": "Amman",
		"billing_address_1": "Rainbow St 5",
		"billing_address_2": "Apt 2",
		"customer_note": "call before delivery",
		"order_total": "45.50",
		"line_items": [{"name": "Beard Balm", "quantity": 2, "price": 20}]
	}`, "application/json")

	fields := Resolve(tree)
	assert.Equal(t, "+962791234567", fields.ClientPhone)
	assert.Equal(t, "Omar Haddad", fields.ClientName)
	assert.Equal(t, "Amman", fields.ClientCity)
	assert.Equal(t, "Rainbow St 5 Apt 2", fields.ClientAddress)
	assert.Equal(t, "Beard Balm", fields.ProductName)
	assert.Equal(t, 2, fields.Quantity)
	assert.Equal(t, 20.0, fields.UnitPrice)
	assert.Equal(t, 45.50, fields.TotalAmount)
	assert.Equal(t, "wc-10042", fields.ExternalOrderID)
	assert.Equal(t, "call before delivery", fields.Notes)
}

func TestResolve_FirstNonEmptyCandidateWins(t *testing.T) {
	tree := mustNormalize(t,
		`{"phone":"+111111111","billing_phone":"+222222222"}`,
		"application/json")
	assert.Equal(t, "+111111111", Resolve(tree).ClientPhone)

	tree = mustNormalize(t,
		`{"phone":"","billing_phone":"+222222222"}`,
		"application/json")
	assert.Equal(t, "+222222222", Resolve(tree).ClientPhone)
}

func TestResolve_TotalFallsBackToUnitPriceTimesQuantity(t *testing.T) {
	tree := mustNormalize(t,
		`{"phone":"+962791234567","product_name":"Soap","unit_price":"1500","quantity":"3"}`,
		"application/json")

	fields := Resolve(tree)
	assert.Equal(t, 4500.0, fields.TotalAmount)

	// Non-positive supplied total falls back too
	tree = mustNormalize(t,
		`{"phone":"+962791234567","product_name":"Soap","unit_price":"1500","quantity":"3","total_amount":"0"}`,
		"application/json")
	assert.Equal(t, 4500.0, Resolve(tree).TotalAmount)
}

func TestResolve_QuantityDefaultsToOne(t *testing.T) {
	tree := mustNormalize(t,
		`{"phone":"+962791234567","product_name":"Soap"}`,
		"application/json")
	assert.Equal(t, 1, Resolve(tree).Quantity)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Rana Haddad", "Rana Haddad"},
		{"trims", "  Amman  ", "Amman"},
		{"script tag", `<script>alert(1)</script>Omar`, "Omar"},
		{"angle brackets", "a < b > c", "a  b  c"},
		{"quotes", `O'Neil says "hi"`, "ONeil says hi"},
		{"bold tag stripped", "<b>Argan</b> Oil", "Argan Oil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestValidate_PhoneFormat(t *testing.T) {
	valid := []string{
		"+962791234567",
		"0791234567",
		"+1 (555) 123-4567",
		"00962 79 123 4567",
	}
	for _, phone := range valid {
		f := OrderFields{ClientPhone: phone, ProductName: "Soap", Quantity: 1}
		assert.NoError(t, f.Validate(), "phone %q", phone)
	}

	invalid := []string{"", "abc", "123", "+962x791234567"}
	for _, phone := range invalid {
		f := OrderFields{ClientPhone: phone, ProductName: "Soap", Quantity: 1}
		err := f.Validate()
		require.Error(t, err, "phone %q", phone)
		var verr *apperrors.ErrValidation
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "client_phone", verr.Field)
	}
}

func TestValidate_ProductNameRequired(t *testing.T) {
	f := OrderFields{ClientPhone: "+962791234567", Quantity: 1}
	err := f.Validate()
	require.Error(t, err)
	var verr *apperrors.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "product_name", verr.Field)
}

func TestValidate_QuantityRange(t *testing.T) {
	base := OrderFields{ClientPhone: "+962791234567", ProductName: "Soap"}

	for _, q := range []int{1, 10000} {
		f := base
		f.Quantity = q
		assert.NoError(t, f.Validate(), "quantity %d", q)
	}

	for _, q := range []int{0, -1, 10001} {
		f := base
		f.Quantity = q
		err := f.Validate()
		require.Error(t, err, "quantity %d", q)
		var verr *apperrors.ErrValidation
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "quantity", verr.Field)
		assert.Equal(t, "quantity must be between 1 and 10000", verr.Message)
	}
}

func TestResolve_UnparsableQuantityFailsValidation(t *testing.T) {
	tree := mustNormalize(t,
		`{"phone":"+962791234567","product_name":"Soap","quantity":"many"}`,
		"application/json")

	fields := Resolve(tree)
	assert.Equal(t, 0, fields.Quantity)
	assert.Error(t, fields.Validate())
}
