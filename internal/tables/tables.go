// Package tables reads and writes step tables as YAML so sequences can be
// tuned on the host and pushed to the device.
//
// A table file holds one or more sequences:
//
//	sequences:
//	  - name: speak
//	    steps:
//	      - {action: a, duration: 5}
//	      - {action: hang, duration: 20}
package tables

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/macros"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/sequence"
)

// File is the on-disk document.
type File struct {
	Sequences []sequence.Sequence `yaml:"sequences"`
}

var ErrDuplicate = errors.New("sequence defined more than once")

// Dump writes every sequence of lib as one YAML document.
func Dump(w io.Writer, lib *macros.Library) error {
	all := lib.All()
	doc := File{Sequences: make([]sequence.Sequence, 0, len(all))}
	for _, s := range all {
		doc.Sequences = append(doc.Sequences, *s)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode tables: %w", err)
	}
	return enc.Close()
}

// Parse decodes a table document and validates each sequence against the
// builtin names.
func Parse(data []byte) ([]sequence.Sequence, error) {
	var doc File
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	ref := macros.Builtin()
	seen := make(map[string]bool, len(doc.Sequences))
	for i := range doc.Sequences {
		s := &doc.Sequences[i]
		s.Name = strings.TrimSpace(s.Name)
		if err := validate(ref, s); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%s: %w", s.Name, ErrDuplicate)
		}
		seen[s.Name] = true
	}
	return doc.Sequences, nil
}

func validate(ref *macros.Library, s *sequence.Sequence) error {
	if s.Name == "" {
		return fmt.Errorf("sequence name is required")
	}
	if _, err := ref.Lookup(s.Name); err != nil {
		return fmt.Errorf("%s: %w", s.Name, err)
	}
	if len(s.Steps) > sequence.MaxSteps {
		return fmt.Errorf("%s: %w", s.Name, sequence.ErrTooManySteps)
	}
	return nil
}

// LoadFile reads a single table file.
func LoadFile(path string) ([]sequence.Sequence, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("table path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}

	seqs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse table %s: %w", path, err)
	}
	return seqs, nil
}

// LoadDir reads every .yaml/.yml file in dir in name order. A missing
// directory yields no overrides. A sequence may only be defined once across
// the directory.
func LoadDir(dir string) ([]sequence.Sequence, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tables dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var out []sequence.Sequence
	origin := make(map[string]string)
	for _, name := range names {
		path := filepath.Join(dir, name)
		seqs, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, s := range seqs {
			if prev, ok := origin[s.Name]; ok {
				return nil, fmt.Errorf("%s in %s and %s: %w", s.Name, prev, path, ErrDuplicate)
			}
			origin[s.Name] = path
		}
		out = append(out, seqs...)
	}
	return out, nil
}

// Apply replaces the steps of each named sequence in lib.
func Apply(lib *macros.Library, seqs []sequence.Sequence) error {
	for _, s := range seqs {
		if err := lib.Replace(s.Name, s.Steps); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}

// Load returns the builtin library with the overrides from dir applied.
func Load(dir string) (*macros.Library, error) {
	lib := macros.Builtin()
	seqs, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	if err := Apply(lib, seqs); err != nil {
		return nil, err
	}
	return lib, nil
}

// Diff lists the names of sequences in lib whose steps differ from the
// builtin tables, in table order.
func Diff(lib *macros.Library) []string {
	ref := macros.Builtin().All()
	var changed []string
	for i, s := range lib.All() {
		if !sameSteps(s.Steps, ref[i].Steps) {
			changed = append(changed, s.Name)
		}
	}
	return changed
}

func sameSteps(a, b []sequence.Step) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
