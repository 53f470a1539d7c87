package config

// Board layout constants.
const (
	// CompactModeThreshold hides progress bars and owners below this width.
	CompactModeThreshold = 60

	// TargetTitleWidth is the preferred width for goal titles.
	TargetTitleWidth = 40

	// MinTitleWidth is the minimum width for goal titles.
	MinTitleWidth = 10

	// ProgressBarWidth is the width of each goal's progress bar.
	ProgressBarWidth = 20

	// BoardChromeLines is the header, help and padding around the goal list.
	BoardChromeLines = 6
)

// Display limits.
const (
	// TruncationSuffix appended to truncated strings.
	TruncationSuffix = "…"

	// MaxFilterLength caps the board's title filter input.
	MaxFilterLength = 40

	// DefaultBoardTheme is used when no board theme is chosen.
	DefaultBoardTheme = "default"
)
