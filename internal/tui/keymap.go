package tui

// Key binding constants used in handleKey.
const (
	KeyQuit          = "q"
	KeyCtrlC         = "ctrl+c"
	KeySpace         = " "
	KeyNext          = "n"
	KeyPrevious      = "p"
	KeyRight         = "right"
	KeyLeft          = "left"
	KeyFaster        = "-"
	KeySlower        = "+"
	KeyValenceUp     = "v"
	KeyArousalUp     = "a"
	KeyInvertValence = "V"
	KeyInvertArousal = "A"
	KeyIsolation     = "s"
	KeyClearSession  = "c"
)
