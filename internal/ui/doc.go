// Package ui renders migration progress to the terminal and asks yes/no questions.
//
// [Console] implements the tasks Presenter: status lines are styled by level with lipgloss,
// the playlist list and the run summary are printed as blocks, and questions are answered
// through a small bubbletea program ([Confirm]) unless the console was created with AssumeYes.
//
// Track-level events are only printed in verbose mode, except for tracks that could not be matched.
package ui
