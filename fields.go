package variation

import "strings"

// Field names. Fields under CallsPrefix hold one value per call and have the
// sample axis second.
const (
	CallsPrefix = "/calls/"

	GT = "/calls/GT"
	DP = "/calls/DP"
	GQ = "/calls/GQ"
	RO = "/calls/RO"
	AO = "/calls/AO"

	Alt   = "/variations/alt"
	Ref   = "/variations/ref"
	Chrom = "/variations/chrom"
	Pos   = "/variations/pos"
	ID    = "/variations/id"
	Qual  = "/variations/qual"
)

// IsPerCall reports whether name is a per-call field.
func IsPerCall(name string) bool {
	return strings.HasPrefix(name, CallsPrefix)
}
