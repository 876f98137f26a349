package config

// CategoryWeights orders command categories in help output.
var CategoryWeights = map[string]int{
	"🕯️ Information": 0,
	"📢 Utilities":    10,
	"🎲 Fun":          20,
	"⚙️ Settings":    50,
}

// CategoryWeight returns the sort weight of category; unknown ones go last.
func CategoryWeight(category string) int {
	if w, ok := CategoryWeights[category]; ok {
		return w
	}
	return 1000
}
