package types

// boundChecker receives the concrete terms found while walking a type's
// bound structure. Returning false from either method stops the walk.
type boundChecker interface {
	// collect is handed every term that is not itself made of bounds.
	collect(t Ty, pol bool) bool
	// boundsOf resolves a variable to the bounds to walk through, or reports
	// that the variable should not be expanded.
	boundsOf(v *typeVariable, pol bool) (TypeBounds, bool)
}

// checkBounds walks the bound structure of t: union members fan out at the
// same polarity, bounds terms and variables expand into their upper bounds at
// pol and their lower bounds at the opposite polarity, and every other term
// lands in checker.collect.
func checkBounds(t Ty, pol bool, checker boundChecker) bool {
	switch ty := t.(type) {
	case unionType:
		for _, member := range ty.types {
			if !checkBounds(member, pol, checker) {
				return false
			}
		}
	case letType:
		for _, ub := range ty.Ubs {
			if !checkBounds(ub, pol, checker) {
				return false
			}
		}
		for _, lb := range ty.Lbs {
			if !checkBounds(lb, !pol, checker) {
				return false
			}
		}
	case *typeVariable:
		bounds, ok := checker.boundsOf(ty, pol)
		if !ok {
			return true
		}
		for _, ub := range bounds.Ubs {
			if !checkBounds(ub, pol, checker) {
				return false
			}
		}
		for _, lb := range bounds.Lbs {
			if !checkBounds(lb, !pol, checker) {
				return false
			}
		}
	default:
		return checker.collect(ty, pol)
	}
	return true
}
