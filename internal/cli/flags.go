package cli

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile  string
	LogLevel string

	// Context overrides, used instead of the clipboard when Text or
	// ContextJSON is set
	Text        string
	App         string
	URL         string
	ContextJSON string

	// Actions
	Suggest     bool
	Front       string
	Back        string
	Deck        string
	Pick        int
	Check       bool
	ListDecks   bool
	ListModels  bool
	History     int
	ExportCSV   string
	ShowContext bool
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		LogLevel: DefaultLogLevel,
		Deck:     DefaultDeck,
	}
}

// HeadlessAction reports whether any flag asks for a command-line action
// instead of the GUI
func (f *Flags) HeadlessAction() bool {
	return f.Suggest || f.Front != "" || f.Back != "" || f.Pick > 0 ||
		f.Check || f.ListDecks || f.ListModels || f.History > 0 || f.ExportCSV != "" ||
		f.ShowContext
}
