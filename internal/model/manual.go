package model

// ManualOrderFields is the fixed field set a manual order carries.
// Create and update calls ignore anything outside this list.
var ManualOrderFields = []string{
	"buyername", "productname", "Quantity", "material", "Chain Length",
	"Personalization", "ioss", "FullAdress", "itemprice", "discount",
	"salestax", "ordertotal", "buyeremail", "tarih", "created_at",
	"Note", "photo", "Produce", "Ready", "Shipped", "shop", "transaction", "_sortKey",
}

// DefaultManualOrder returns a fresh manual order template with every
// field at its documented default. Stage flags default to the persisted
// "FALSE" literal.
func DefaultManualOrder() Order {
	return Order{
		"buyername":       "",
		"productname":     "",
		"Quantity":        "",
		"material":        "",
		"Chain Length":    "",
		"Personalization": "",
		"ioss":            "",
		"FullAdress":      "",
		"itemprice":       "",
		"discount":        "",
		"salestax":        "",
		"ordertotal":      "",
		"buyeremail":      "",
		"tarih":           "",
		"created_at":      "",
		"Note":            "",
		"photo":           "",
		"Produce":         FlagFalse,
		"Ready":           FlagFalse,
		"Shipped":         FlagFalse,
		"shop":            "",
		"transaction":     "",
		"isManual":        true,
	}
}

// ManualStageFields are the manual order fields normalized to flag
// literals on update.
var ManualStageFields = map[string]bool{
	"Produce": true,
	"Ready":   true,
	"Shipped": true,
}
