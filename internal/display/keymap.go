package display

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Action is one user control.
type Action int

const (
	ActionNone Action = iota
	ActionToggle
	ActionTempoUp
	ActionTempoDown
	ActionSetTempo
	ActionMeterUp
	ActionMeterDown
	ActionTap
	ActionQuit
)

var actionNames = map[Action]string{
	ActionNone:      "none",
	ActionToggle:    "toggle",
	ActionTempoUp:   "tempo-up",
	ActionTempoDown: "tempo-down",
	ActionSetTempo:  "set-tempo",
	ActionMeterUp:   "meter-up",
	ActionMeterDown: "meter-down",
	ActionTap:       "tap",
	ActionQuit:      "quit",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Command is an Action with its argument. BPM is only used by ActionSetTempo.
type Command struct {
	Action Action
	BPM    int
}

// FromKey maps a terminal key press to a command.
//
//	space        toggle
//	up / down    tempo +1 / -1
//	+ ] / - [    meter +1 / -1
//	t            tap
//	q Esc Ctrl-C quit
func FromKey(ev *tcell.EventKey) Command {
	switch ev.Key() {
	case tcell.KeyUp:
		return Command{Action: ActionTempoUp}
	case tcell.KeyDown:
		return Command{Action: ActionTempoDown}
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Command{Action: ActionQuit}
	case tcell.KeyRune:
		switch ev.Rune() {
		case ' ':
			return Command{Action: ActionToggle}
		case '+', '=', ']':
			return Command{Action: ActionMeterUp}
		case '-', '_', '[':
			return Command{Action: ActionMeterDown}
		case 't', 'T':
			return Command{Action: ActionTap}
		case 'q', 'Q':
			return Command{Action: ActionQuit}
		}
	}
	return Command{}
}

// ParseLine maps one line of plain-mode input to a command. An empty line
// toggles playback and a bare number sets the tempo.
func ParseLine(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{Action: ActionToggle}, nil
	}

	switch fields[0] {
	case "p", "play", "s", "stop", "toggle":
		return Command{Action: ActionToggle}, nil
	case "u", "up":
		return Command{Action: ActionTempoUp}, nil
	case "d", "down":
		return Command{Action: ActionTempoDown}, nil
	case "+", "]":
		return Command{Action: ActionMeterUp}, nil
	case "-", "[":
		return Command{Action: ActionMeterDown}, nil
	case "t", "tap":
		return Command{Action: ActionTap}, nil
	case "q", "quit", "exit":
		return Command{Action: ActionQuit}, nil
	case "bpm", "tempo":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("usage: %s <bpm>", fields[0])
		}
		return parseTempo(fields[1])
	}

	if _, err := strconv.Atoi(fields[0]); err == nil && len(fields) == 1 {
		return parseTempo(fields[0])
	}
	return Command{}, fmt.Errorf("unknown command %q", line)
}

func parseTempo(s string) (Command, error) {
	bpm, err := strconv.Atoi(s)
	if err != nil {
		return Command{}, fmt.Errorf("invalid tempo %q: %w", s, err)
	}
	return Command{Action: ActionSetTempo, BPM: bpm}, nil
}
