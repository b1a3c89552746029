package card

// Palette pairs a card background with pre-assigned contrast-safe text
// colors. The Light flag is part of the table rather than computed
// from luminance, so every entry ships with an explicit, reviewed
// combination.
type Palette struct {
	Background string
	Primary    string
	Accent     string
	BottomBar  string
	Light      bool
}

// Palettes is the fixed set of card backgrounds. One entry is picked
// uniformly at random per render.
var Palettes = []Palette{
	{Background: "#0047FF", Primary: "#FFFFFF", Accent: "#0047FF", BottomBar: "#FFFFFF", Light: false}, // blue
	{Background: "#B24BF3", Primary: "#FFFFFF", Accent: "#B24BF3", BottomBar: "#FFFFFF", Light: false}, // purple
	{Background: "#BFFF00", Primary: "#000000", Accent: "#000000", BottomBar: "#000000", Light: true},  // lime
	{Background: "#FFB6D9", Primary: "#000000", Accent: "#000000", BottomBar: "#000000", Light: true},  // pink
	{Background: "#FF6B35", Primary: "#FFFFFF", Accent: "#FF6B35", BottomBar: "#FFFFFF", Light: false}, // orange
}
