package audio

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform is what the host offers for sound output. The factory picks a
// backend from it in auto mode.
type Platform struct {
	WSL bool
	// Headless means Linux with neither a sound card nor a sound server
	// socket, as on CI machines and containers.
	Headless bool
	// Player is the first raw-capable player on PATH, or "".
	Player string
}

// PreferredBackend is the backend auto mode tries first
func (p Platform) PreferredBackend() string {
	switch {
	case p.Headless:
		return BackendNull
	case p.WSL && p.Player != "":
		// miniaudio crackles under WSLg; an external player is smoother
		return BackendSystemCommand
	case p.WSL:
		slog.Warn("no raw-capable system player found in WSL, falling back to malgo")
		return BackendMalgo
	default:
		return BackendMalgo
	}
}

// rawCapablePlayers lists players that accept headerless PCM on stdin,
// in priority order.
var rawCapablePlayers = []string{
	"paplay", // PulseAudio / PipeWire
	"aplay",  // ALSA
	"ffplay", // FFmpeg
}

// platformProbe holds the host lookups so detection can run against fakes
type platformProbe struct {
	goos        string
	getenv      func(string) string
	exists      func(string) bool
	hasCommand  func(string) bool
	procVersion func() string
}

func hostProbe() platformProbe {
	return platformProbe{
		goos:   runtime.GOOS,
		getenv: os.Getenv,
		exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
		hasCommand:  CommandExists,
		procVersion: readProcVersion,
	}
}

// ProbePlatform inspects the running host
func ProbePlatform() Platform {
	return hostProbe().probe()
}

func (pp platformProbe) probe() Platform {
	p := Platform{
		WSL:    pp.goos == "linux" && detectWSLFromData(pp.procVersion(), pp.getenv("WSL_DISTRO_NAME")),
		Player: pp.preferredPlayer(),
	}
	if pp.goos == "linux" && !p.WSL {
		p.Headless = !pp.exists("/dev/snd") && !pp.soundServer()
	}

	slog.Debug("platform probed",
		"os", pp.goos,
		"wsl", p.WSL,
		"headless", p.Headless,
		"player", p.Player)
	return p
}

// soundServer reports a reachable PulseAudio or PipeWire endpoint
func (pp platformProbe) soundServer() bool {
	if pp.getenv("PULSE_SERVER") != "" {
		return true
	}
	runtimeDir := pp.getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return false
	}
	return pp.exists(filepath.Join(runtimeDir, "pulse", "native")) ||
		pp.exists(filepath.Join(runtimeDir, "pipewire-0"))
}

func (pp platformProbe) preferredPlayer() string {
	for _, cmd := range rawCapablePlayers {
		if pp.hasCommand(cmd) {
			return cmd
		}
	}
	return ""
}

// detectWSLFromData checks the kernel version string and the WSL env var
func detectWSLFromData(procVersion, wslEnv string) bool {
	if wslEnv != "" {
		return true
	}
	procLower := strings.ToLower(procVersion)
	return strings.Contains(procLower, "microsoft") || strings.Contains(procLower, "wsl")
}

func readProcVersion() string {
	content, err := os.ReadFile("/proc/version")
	if err != nil {
		slog.Debug("failed to read /proc/version", "error", err)
		return ""
	}
	return string(content)
}

// CommandExists checks if a command is available in PATH
func CommandExists(command string) bool {
	if command == "" {
		return false
	}
	_, err := exec.LookPath(command)
	return err == nil
}

// DetectOptimalBackend determines the best output backend for the current system
func DetectOptimalBackend() string {
	return ProbePlatform().PreferredBackend()
}
