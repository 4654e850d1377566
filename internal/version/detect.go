package version

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
)

// Info captures an external tool found on the system.
type Info struct {
	Name    string
	Version string
}

// probe describes how to ask one tool for its version.
type probe struct {
	name string
	args []string
}

// Tools returns the external executables the workflow invokes, in pipeline
// order, paired with their version arguments.
func Tools() []string {
	names := make([]string, 0, len(probes))
	for _, p := range probes {
		names = append(names, p.name)
	}
	return names
}

var probes = []probe{
	{"cutadapt", []string{"--version"}},
	{"umi_tools", []string{"--version"}},
	{"hisat2", []string{"--version"}},
	{"hisat2-build", []string{"--version"}},
	{"samtools", []string{"--version"}},
	{"bedtools", []string{"--version"}},
	{"Rscript", []string{"--version"}},
}

// Detect probes the named tool by running it with its version flag. The
// returned Info carries the first output line, which is as close to a version
// string as these tools make available.
func Detect(name string) (Info, error) {
	var args []string
	for _, p := range probes {
		if p.name == name {
			args = p.args
			break
		}
	}
	if args == nil {
		args = []string{"--version"}
	}

	out, err := runCommand(name, args...)
	if err != nil {
		return Info{}, err
	}
	version := out
	if idx := strings.IndexByte(out, '\n'); idx >= 0 {
		version = out[:idx]
	}
	return Info{Name: name, Version: strings.TrimSpace(version)}, nil
}

// Missing reports whether err means the executable was not found on PATH.
func Missing(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

func runCommand(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
