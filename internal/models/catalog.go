package models

// DefaultComposition returns the default item quantities for a dinner kind.
// The order form and the conversational agent use it to prefill quantities;
// the placement engine never forces it.
func DefaultComposition(kind DinnerKind) map[string]int {
	switch kind {
	case Valentine:
		return map[string]int{"wine": 1, "steak": 1}
	case French:
		return map[string]int{"coffee_cup": 1, "wine": 1, "salad": 1, "steak": 1}
	case English:
		return map[string]int{"eggscramble": 1, "bacon": 1, "bread": 1, "steak": 1}
	case Champagne:
		return map[string]int{"champagne": 1, "baguette": 4, "coffee_pot": 1, "wine": 1, "steak": 1}
	}
	return nil
}
