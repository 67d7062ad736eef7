// Package doctor runs non-interactive checks of everything a session
// depends on and prints a PASS/WARN/FAIL line per check.
package doctor

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"voxentry/audio"
	"voxentry/clipboard"
	"voxentry/config"
	"voxentry/registry"
)

type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	headStyle = lipgloss.NewStyle().Bold(true)
	hintStyle = lipgloss.NewStyle().Faint(true)
)

func (s Status) String() string {
	switch s {
	case Pass:
		return passStyle.Render("PASS")
	case Warn:
		return warnStyle.Render("WARN")
	}
	return failStyle.Render("FAIL")
}

type Result struct {
	Status Status
	Detail string
	Fix    string
}

type Check struct {
	Name string
	Run  func() []Result
}

type Doctor struct {
	cfg      *config.Config
	out      io.Writer
	lookPath func(string) (string, error)
	// listen records briefly from the configured device and returns the
	// PCM it captured.
	listen func(d time.Duration) (string, []byte, error)
}

func New(cfg *config.Config, out io.Writer) *Doctor {
	d := &Doctor{cfg: cfg, out: out, lookPath: exec.LookPath}
	d.listen = d.record
	return d
}

// Run executes all checks and returns an exit code (0=no failures, 1=any fail).
func Run(cfg *config.Config, out io.Writer) int {
	d := New(cfg, out)
	return d.Run(d.Checks())
}

func (d *Doctor) Checks() []Check {
	return []Check{
		{"Tools", d.checkTools},
		{"API keys", d.checkKeys},
		{"Session registry", d.checkRegistry},
		{"Microphone", d.checkMicrophone},
		{"Clipboard", d.checkClipboard},
		{"Keystroke output", d.checkKeystrokes},
	}
}

func (d *Doctor) Run(checks []Check) int {
	fmt.Fprintln(d.out, headStyle.Render("voxentry doctor - system diagnostics"))
	fmt.Fprintln(d.out, "====================================")

	failed := false
	for i, c := range checks {
		fmt.Fprintf(d.out, "\n[%d/%d] %s\n", i+1, len(checks), c.Name)
		for _, r := range c.Run() {
			fmt.Fprintf(d.out, "  %s: %s\n", r.Status, r.Detail)
			if r.Fix != "" {
				fmt.Fprintf(d.out, "        %s\n", hintStyle.Render(r.Fix))
			}
			if r.Status == Fail {
				failed = true
			}
		}
	}

	fmt.Fprintln(d.out)
	if failed {
		fmt.Fprintln(d.out, "Some checks failed. See details above.")
		return 1
	}
	fmt.Fprintln(d.out, "All checks passed!")
	return 0
}

func (d *Doctor) checkTools() []Result {
	type tool struct {
		names    []string
		required bool
		purpose  string
		fix      string
	}
	tools := []tool{
		{[]string{"xdotool"}, false, "type mode", "install xdotool; without it typing falls back to " + fallbackName()},
		{[]string{"goose"}, false, "goose mode", "install the goose CLI to hand instructions to it"},
	}
	if runtime.GOOS == "linux" {
		tools = append(tools, tool{[]string{"xclip", "xsel", "wl-copy"}, true, "clipboard", "install xclip (X11) or wl-clipboard (Wayland)"})
	}
	if d.cfg.GooseBinary != "" && d.cfg.GooseBinary != "goose" {
		tools[1].names = []string{d.cfg.GooseBinary}
	}

	var results []Result
	for _, t := range tools {
		found := ""
		for _, n := range t.names {
			if p, err := d.lookPath(n); err == nil {
				found = p
				break
			}
		}
		switch {
		case found != "":
			results = append(results, Result{Status: Pass, Detail: fmt.Sprintf("%s: %s", t.purpose, found)})
		case t.required:
			results = append(results, Result{Status: Fail, Detail: fmt.Sprintf("%s: none of %s found", t.purpose, strings.Join(t.names, ", ")), Fix: t.fix})
		default:
			results = append(results, Result{Status: Warn, Detail: fmt.Sprintf("%s: %s not found", t.purpose, t.names[0]), Fix: t.fix})
		}
	}
	return results
}

func fallbackName() string {
	if runtime.GOOS == "darwin" {
		return "Cmd+V paste"
	}
	return "the uinput keyboard"
}

func (d *Doctor) checkKeys() []Result {
	var results []Result
	if d.cfg.TranscriptionKey() == "" {
		results = append(results, Result{Status: Fail, Detail: d.cfg.Provider + " transcription key missing",
			Fix: "set OPENAI_API_KEY or GROQ_API_KEY, or add it to " + config.FilePath()})
	} else {
		results = append(results, Result{Status: Pass, Detail: fmt.Sprintf("transcription via %s (%s)", d.cfg.Provider, mask(d.cfg.TranscriptionKey()))})
	}
	if d.cfg.OpenAIKey == "" {
		results = append(results, Result{Status: Warn, Detail: "OPENAI_API_KEY missing: completion and edit modes will fail"})
	} else {
		results = append(results, Result{Status: Pass, Detail: "completion via " + d.cfg.CompletionModel})
	}
	if d.cfg.PerplexityKey == "" {
		results = append(results, Result{Status: Warn, Detail: "PERPLEXITY_API_KEY missing: perplexity mode will fail"})
	} else {
		results = append(results, Result{Status: Pass, Detail: "perplexity via " + d.cfg.PerplexityModel})
	}
	return results
}

func mask(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func (d *Doctor) checkRegistry() []Result {
	reg := registry.New(d.cfg.PIDPath())
	if h, ok := reg.Current(); ok {
		return []Result{{Status: Warn, Detail: fmt.Sprintf("session running as pid %d since %s", h.PID, h.Created.Format(time.Kitchen)),
			Fix: "voxentry stop ends it"}}
	}
	return []Result{{Status: Pass, Detail: "no session running (" + reg.Path() + ")"}}
}

func (d *Doctor) checkMicrophone() []Result {
	name, pcm, err := d.listen(time.Second)
	if err != nil {
		return []Result{{Status: Fail, Detail: err.Error(), Fix: "run voxentry devices to pick an input"}}
	}
	if len(pcm) == 0 {
		return []Result{{Status: Fail, Detail: name + ": no audio captured in 1s"}}
	}
	level := peak(pcm)
	detail := fmt.Sprintf("%s: %.1f KB captured, peak %d%%", name, float64(len(pcm))/1024, level*100/32767)
	results := []Result{{Status: Pass, Detail: detail}}
	if level < 100 {
		results[0].Status = Warn
		results[0].Fix = "the input looks silent; check the mute switch or pick another device"
	}
	if audio.IsBluetooth(name) {
		results = append(results, Result{Status: Warn, Detail: "bluetooth headsets switch to a low-quality profile while recording"})
	}
	return results
}

func peak(pcm []byte) int {
	p := 0
	for i := 0; i+1 < len(pcm); i += 2 {
		v := int(int16(binary.LittleEndian.Uint16(pcm[i:])))
		p = max(p, v, -v)
	}
	return p
}

func (d *Doctor) record(dur time.Duration) (string, []byte, error) {
	actx, err := audio.NewContext()
	if err != nil {
		return "", nil, err
	}
	defer actx.Close()

	src, err := audio.OpenDeviceSource(actx, d.cfg.Device)
	if err != nil {
		return "", nil, err
	}
	defer src.Close()
	if err := src.Start(); err != nil {
		return src.Name(), nil, err
	}
	time.Sleep(dur)
	src.Stop()

	buf := make([]byte, src.Available())
	n, err := src.Read(buf)
	return src.Name(), buf[:n], err
}

func (d *Doctor) checkClipboard() []Result {
	if clipboard.Unsupported() {
		return []Result{{Status: Fail, Detail: "no clipboard utility found", Fix: "install xclip, xsel or wl-clipboard"}}
	}

	testStr := fmt.Sprintf("voxentry-doctor-%d", time.Now().UnixNano())
	type cbResult struct {
		readback string
		err      error
		phase    string
	}
	ch := make(chan cbResult, 1)
	go func() {
		prev, _ := clipboard.Read()
		defer clipboard.Copy(prev)
		if err := clipboard.Copy(testStr); err != nil {
			ch <- cbResult{err: err, phase: "write"}
			return
		}
		got, err := clipboard.Read()
		ch <- cbResult{readback: got, err: err, phase: "read"}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	select {
	case res := <-ch:
		if res.err != nil {
			return []Result{{Status: Fail, Detail: fmt.Sprintf("clipboard %s failed: %v", res.phase, res.err)}}
		}
		if res.readback != testStr {
			return []Result{{Status: Fail, Detail: fmt.Sprintf("clipboard mismatch: wrote %q, got %q", testStr, res.readback)}}
		}
		return []Result{{Status: Pass, Detail: "clipboard write/read verified"}}
	case <-ctx.Done():
		return []Result{{Status: Fail, Detail: "clipboard timed out (clipboard tool hung, compositor not accessible?)"}}
	}
}

func (d *Doctor) checkKeystrokes() []Result {
	if _, err := d.lookPath("xdotool"); err == nil {
		return []Result{{Status: Pass, Detail: "typing through xdotool"}}
	}
	msg, err := clipboard.Verify()
	if err != nil {
		return []Result{{Status: Fail, Detail: err.Error(),
			Fix: "sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput"}}
	}
	return []Result{{Status: Pass, Detail: msg}}
}
