package inventory

import (
	"strings"

	"github.com/google/uuid"
)

// CodePrefix is the fixed prefix of every scannable item code. The prefix
// keeps the code namespace disjoint from raw item ids, so a single reference
// string can be resolved unambiguously as one or the other.
const CodePrefix = "ITM-"

// NewItemID allocates a new unique item identifier.
func NewItemID() string {
	return uuid.New().String()
}

// CodeForID derives the scannable code for an item id. The derivation is
// deterministic and the id is unique, so the resulting code is globally
// unique as well.
func CodeForID(id string) string {
	return CodePrefix + id
}

// IsItemCode reports whether ref is a scannable code rather than a raw id.
func IsItemCode(ref string) bool {
	return strings.HasPrefix(ref, CodePrefix)
}
