package constants

// DocKind labels what a scanned document turned out to be.
type DocKind string

const (
	KindUnknown     DocKind = "UNKNOWN"
	KindCaseOrder   DocKind = "CASE_ORDER"  // judicial "oficio"
	KindCertificate DocKind = "CERTIFICATE" // vehicle registration certificate ("CAV")
)

// Complement returns the kind that pairs with k, or KindUnknown when k has none.
func (k DocKind) Complement() DocKind {
	switch k {
	case KindCaseOrder:
		return KindCertificate
	case KindCertificate:
		return KindCaseOrder
	default:
		return KindUnknown
	}
}
