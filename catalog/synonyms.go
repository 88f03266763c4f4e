package catalog

import "github.com/poiesic/queryroute/core"

// seedGroup is a known domain concept with the vocabulary that implies it.
// Field names containing any of these terms as a token are pulled into the
// group regardless of token-set similarity.
type seedGroup struct {
	canonical string
	terms     []string
	valueType core.FieldType
}

// seedGroups is the built-in synonym vocabulary. It covers the concepts
// document schemas name inconsistently in practice; everything else is
// grouped by token similarity alone.
var seedGroups = []seedGroup{
	{
		canonical: "amount",
		terms:     []string{"amount", "total", "price", "cost", "payment", "sum", "spending", "subtotal", "fee"},
		valueType: core.FieldTypeNumber,
	},
	{
		canonical: "vendor",
		terms:     []string{"vendor", "supplier", "seller", "merchant", "payee", "provider"},
		valueType: core.FieldTypeText,
	},
	{
		canonical: "customer",
		terms:     []string{"customer", "client", "buyer", "payer", "recipient"},
		valueType: core.FieldTypeText,
	},
	{
		canonical: "date",
		terms:     []string{"date", "issued", "created", "received", "due"},
		valueType: core.FieldTypeDate,
	},
	{
		canonical: "status",
		terms:     []string{"status", "state", "stage"},
		valueType: core.FieldTypeText,
	},
	{
		canonical: "tax",
		terms:     []string{"tax", "vat", "gst"},
		valueType: core.FieldTypeNumber,
	},
	{
		canonical: "quantity",
		terms:     []string{"quantity", "count", "units", "qty"},
		valueType: core.FieldTypeNumber,
	},
	{
		canonical: "currency",
		terms:     []string{"currency"},
		valueType: core.FieldTypeText,
	},
	{
		canonical: "description",
		terms:     []string{"description", "summary", "notes", "details", "memo"},
		valueType: core.FieldTypeText,
	},
	{
		canonical: "identifier",
		terms:     []string{"id", "number", "reference", "ref"},
		valueType: core.FieldTypeText,
	},
}

// seedTermIndex maps each seed term to its canonical concept name.
func seedTermIndex() map[string]string {
	index := make(map[string]string)
	for _, group := range seedGroups {
		for _, term := range group.terms {
			index[term] = group.canonical
		}
	}
	return index
}

// seedTypeIndex maps each seed canonical name to its declared value type.
func seedTypeIndex() map[string]core.FieldType {
	index := make(map[string]core.FieldType, len(seedGroups))
	for _, group := range seedGroups {
		index[group.canonical] = group.valueType
	}
	return index
}
