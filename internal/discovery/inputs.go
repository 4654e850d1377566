package discovery

import (
	"errors"
	"path/filepath"
	"sort"
)

// ErrNoSamples indicates that the configuration defines no samples at all.
var ErrNoSamples = errors.New("no samples configured")

// Input describes one sample's resolved input file.
type Input struct {
	Sample string
	Path   string
}

// Inputs resolves each configured sample's FASTQ file against the input
// directory. Relative paths are joined to root and dirIn; absolute paths are
// used as given. Samples are returned in lexicographic name order so runs are
// deterministic regardless of map iteration. Resolution is purely lexical:
// whether the file exists is checked later by the driver's validation pass,
// so one sample's missing input never affects the others.
func Inputs(root, dirIn string, fqFiles map[string]string) ([]Input, error) {
	if len(fqFiles) == 0 {
		return nil, ErrNoSamples
	}

	names := make([]string, 0, len(fqFiles))
	for name := range fqFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	inputs := make([]Input, 0, len(names))
	for _, name := range names {
		inputs = append(inputs, Input{
			Sample: name,
			Path:   resolve(root, dirIn, fqFiles[name]),
		})
	}
	return inputs, nil
}

func resolve(root, dirIn, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	base := dirIn
	if !filepath.IsAbs(base) {
		base = filepath.Join(root, base)
	}
	return filepath.Join(base, file)
}
