package engine

import "strings"

// ReconcileMethod picks the method to dispatch with. The catalog-declared
// method always wins; overridden reports that the inbound hint disagreed.
func ReconcileMethod(inbound, declared string) (method string, overridden bool) {
	method = strings.ToUpper(strings.TrimSpace(declared))
	inbound = strings.ToUpper(strings.TrimSpace(inbound))
	return method, inbound != "" && inbound != method
}
