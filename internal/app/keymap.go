package app

// Key binding constants used in handleKey. Editor-wide actions use ctrl
// chords so they work while a text field has focus.
const (
	KeyCtrlC       = "ctrl+c"
	KeyQuit        = "q"
	KeyRecord      = "ctrl+r"
	KeySave        = "ctrl+s"
	KeyNew         = "ctrl+n"
	KeyDelete      = "ctrl+d"
	KeySummarize   = "ctrl+t"
	KeyActionItems = "ctrl+l"
	KeySignInOut   = "ctrl+o"
	KeyTab         = "tab"
	KeyShiftTab    = "shift+tab"
	KeyEsc         = "esc"
	KeyEnter       = "enter"
	KeyUp          = "up"
	KeyDown        = "down"
	KeyJ           = "j"
	KeyK           = "k"
	KeyFilter      = "/"
	KeyYes         = "y"
	KeyNo          = "n"
)
