package constants

// CommonUnits are unit spellings seen in kitchen and bar orders. They are only
// offered to the language model as examples; extracted units are stored verbatim.
var CommonUnits = []string{
	"Stück",
	"Kiste",
	"Kilo",
	"Gramm",
	"Liter",
	"Flasche",
	"Packung",
	"Karton",
	"Dose",
	"Bund",
	"Sack",
	"Eimer",
}
