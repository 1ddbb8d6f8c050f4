package led

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/smazurov/pinnode/internal/hal"
)

// Options selects the LED backend.
type Options struct {
	// Kind is "auto", "sysfs", "pin" or "none".
	Kind string
	// Pin is the board output used by the "pin" backend.
	Pin int
	// SysfsName overrides the detected sysfs LED name.
	SysfsName string
}

// New creates a new LED controller based on configuration and board detection.
// On auto, a Raspberry Pi gets its ACT LED through sysfs, any other board
// with a real pin driver gets the LED pin, and everything else gets a no-op.
func New(logger *slog.Logger, board hal.Board, opts Options) (Controller, error) {
	return newController(logger, board, opts, hal.Model(), sysfsLEDPath)
}

func newController(logger *slog.Logger, board hal.Board, opts Options, boardModel, sysfsRoot string) (Controller, error) {
	switch strings.ToLower(opts.Kind) {
	case "none":
		return newNoop(logger), nil
	case "pin":
		if board == nil {
			return nil, fmt.Errorf("LED pin backend requires a board")
		}
		return newPin(board, opts.Pin), nil
	case "sysfs":
		return newSysfs(sysfsRoot, sysfsName(opts, boardModel)), nil
	case "", "auto":
	default:
		return nil, fmt.Errorf("unknown LED backend %q", opts.Kind)
	}

	logger.Info("Detecting board for LED control", "board_model", boardModel)

	switch {
	case strings.Contains(boardModel, "Raspberry Pi"):
		logger.Info("Detected Raspberry Pi, using sysfs LED controller")
		return newSysfs(sysfsRoot, sysfsName(opts, boardModel)), nil

	case board != nil && board.Name() != "sim":
		logger.Info("Using board pin for LED control", "pin", opts.Pin)
		return newPin(board, opts.Pin), nil

	default:
		logger.Info("No LED support detected, using no-op controller", "board_model", boardModel)
		return newNoop(logger), nil
	}
}

func sysfsName(opts Options, boardModel string) string {
	if opts.SysfsName != "" {
		return opts.SysfsName
	}
	if strings.Contains(boardModel, "Raspberry Pi") {
		return "ACT"
	}
	return "led0"
}
