package input

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

const defaultTypeDelay = 12 * time.Millisecond

// Xdotool injects input by shelling out to the xdotool utility. It targets
// whatever window currently has focus, which is the console host while a
// session runs.
type Xdotool struct {
	// Display overrides the DISPLAY environment variable when set.
	Display string
	// TypeDelay is the per-keystroke delay handed to xdotool type.
	TypeDelay time.Duration
}

func (x *Xdotool) Init() error {
	if _, err := exec.LookPath("xdotool"); err != nil {
		return fmt.Errorf("xdotool not available: %w", err)
	}
	return nil
}

func (x *Xdotool) SendKeystrokes(text string) error {
	delay := x.TypeDelay
	if delay <= 0 {
		delay = defaultTypeDelay
	}
	return x.run("type", "--delay", strconv.FormatInt(delay.Milliseconds(), 10), "--", text)
}

func (x *Xdotool) SendReturn() error {
	return x.run("key", "Return")
}

func (x *Xdotool) SendEscape() error {
	return x.run("key", "Escape")
}

func (x *Xdotool) SendMouseClick(posX, posY int, right bool) error {
	if err := x.run("mousemove", strconv.Itoa(posX), strconv.Itoa(posY)); err != nil {
		return err
	}
	button := "1"
	if right {
		button = "3"
	}
	return x.run("click", button)
}

func (x *Xdotool) run(args ...string) error {
	cmd := exec.Command("xdotool", args...)
	if x.Display != "" {
		cmd.Env = append(os.Environ(), "DISPLAY="+x.Display)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("xdotool %s: %v: %s", args[0], err, bytes.TrimSpace(out.Bytes()))
	}
	return nil
}
