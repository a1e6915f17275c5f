// Package autostart installs the daemon as a per-user login service.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/template"
)

const label = "io.kbmd.daemon"

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
</dict>
</plist>
`

const systemdUserUnit = `[Unit]
Description=kbmd remote keyboard and mouse daemon
After=graphical-session.target
PartOf=graphical-session.target

[Service]
ExecStart={{.ExecutablePath}}{{range .Args}} {{.}}{{end}}
Restart=on-failure
RestartSec=2

[Install]
WantedBy=graphical-session.target
`

type unitData struct {
	Label          string
	ExecutablePath string
	Args           []string
}

// target is where one platform keeps its login entry.
type target struct {
	path string
	tmpl string
}

func targetFor(goos, home string) (target, error) {
	switch goos {
	case "darwin":
		return target{
			path: filepath.Join(home, "Library", "LaunchAgents", label+".plist"),
			tmpl: macLaunchAgentPlist,
		}, nil
	case "linux":
		dir := os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			dir = filepath.Join(home, ".config")
		}
		return target{
			path: filepath.Join(dir, "systemd", "user", "kbmd.service"),
			tmpl: systemdUserUnit,
		}, nil
	default:
		return target{}, fmt.Errorf("unsupported platform: %s", goos)
	}
}

func currentTarget() (target, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return target{}, err
	}
	return targetFor(runtime.GOOS, home)
}

// Enable installs a login entry that runs this executable with args. On Linux
// the unit still has to be started with "systemctl --user enable --now kbmd".
func Enable(args ...string) (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	t, err := currentTarget()
	if err != nil {
		return "", err
	}
	return t.path, t.write(execPath, args)
}

// Disable removes the login entry, if present.
func Disable() error {
	t, err := currentTarget()
	if err != nil {
		return err
	}
	return t.remove()
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	t, err := currentTarget()
	if err != nil {
		return false
	}
	return t.exists()
}

func (t target) write(execPath string, args []string) error {
	tmpl, err := template.New("unit").Parse(t.tmpl)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(t.path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, unitData{Label: label, ExecutablePath: execPath, Args: args})
}

func (t target) remove() error {
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (t target) exists() bool {
	_, err := os.Stat(t.path)
	return err == nil
}
