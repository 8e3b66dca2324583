package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/podd/internal/ui"
)

// runPicker launches the interactive removal picker.
func (r *Runner) runPicker(manager ui.Manager) error {
	// Keep log lines off the alternate screen while the picker owns the terminal.
	level := r.log().GetLevel()
	r.log().SetLevel(log.FatalLevel)
	defer r.log().SetLevel(level)

	model := ui.NewModel(manager)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithInput(r.input), tea.WithOutput(r.output))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running picker: %w", err)
	}

	if err := model.Err(); err != nil {
		return err
	}
	if removed := model.Removed(); removed != nil {
		return r.writePlain("%s Removed %s\n", ui.Success("✓"), removed.Name)
	}
	return r.writePlain("Nothing removed.\n")
}
