package multilca

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/lvlca/inventory"
)

// Format is the encoding of a setup file.
type Format string

// Supported setup file formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath derives the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// SetupDoc is the on-disk form of a Setup.
//
//	name: electricity
//	inv:
//	  - key: [db, electricity]
//	    amount: 1
//	ia:
//	  - [IPCC 2021, climate change, GWP 100a]
type SetupDoc struct {
	Name string     `yaml:"name" toml:"name"`
	Inv  []FlowDoc  `yaml:"inv" toml:"inv"`
	IA   [][]string `yaml:"ia" toml:"ia"`
}

// FlowDoc is one functional unit. Units demanding several activities list
// them under Flows instead of Key/Amount.
type FlowDoc struct {
	Key    []string  `yaml:"key,omitempty" toml:"key,omitempty"`
	Amount float64   `yaml:"amount,omitempty" toml:"amount,omitempty"`
	Flows  []FlowDoc `yaml:"flows,omitempty" toml:"flows,omitempty"`
}

func (d FlowDoc) addTo(fu FunctionalUnit) error {
	if len(d.Flows) > 0 {
		for _, f := range d.Flows {
			if err := f.addTo(fu); err != nil {
				return err
			}
		}
		return nil
	}
	if len(d.Key) != 2 {
		return fmt.Errorf("%w: key %v must be [database, code]", inventory.ErrInvalidKey, d.Key)
	}
	fu[inventory.K(d.Key[0], d.Key[1])] += d.Amount

	return nil
}

// Setup converts the document. It does not validate the result.
func (d SetupDoc) Setup() (Setup, error) {
	s := Setup{Name: d.Name}
	for i, f := range d.Inv {
		fu := make(FunctionalUnit)
		if err := f.addTo(fu); err != nil {
			return Setup{}, fmt.Errorf("setup %q: inv[%d]: %w", d.Name, i, err)
		}
		s.Inv = append(s.Inv, fu)
	}
	for _, m := range d.IA {
		s.IA = append(s.IA, inventory.MethodID(m))
	}

	return s, nil
}

// Doc converts a Setup to its on-disk form.
func (s Setup) Doc() SetupDoc {
	d := SetupDoc{Name: s.Name}
	for _, fu := range s.Inv {
		keys := fu.Keys()
		if len(keys) == 1 {
			d.Inv = append(d.Inv, FlowDoc{Key: []string{keys[0].Database, keys[0].Code}, Amount: fu[keys[0]]})
			continue
		}
		var multi FlowDoc
		for _, k := range keys {
			multi.Flows = append(multi.Flows, FlowDoc{Key: []string{k.Database, k.Code}, Amount: fu[k]})
		}
		d.Inv = append(d.Inv, multi)
	}
	for _, m := range s.IA {
		d.IA = append(d.IA, []string(m))
	}

	return d
}

// ReadSetup decodes a setup document in the given format and validates it.
// Unknown fields are rejected.
func ReadSetup(r io.Reader, f Format) (Setup, error) {
	var doc SetupDoc
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return Setup{}, fmt.Errorf("ReadSetup: %w", err)
		}
	case FormatTOML:
		if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&doc); err != nil {
			return Setup{}, fmt.Errorf("ReadSetup: %w", err)
		}
	default:
		return Setup{}, fmt.Errorf("ReadSetup: %w: %q", ErrUnknownFormat, f)
	}
	s, err := doc.Setup()
	if err != nil {
		return Setup{}, fmt.Errorf("ReadSetup: %w", err)
	}
	if err = s.Validate(); err != nil {
		return Setup{}, fmt.Errorf("ReadSetup: %w", err)
	}

	return s, nil
}

// LoadSetup reads a setup file, picking the format from its extension.
func LoadSetup(path string) (Setup, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return Setup{}, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return Setup{}, err
	}
	defer fh.Close()

	return ReadSetup(fh, f)
}

// WriteSetup encodes s in the given format.
func WriteSetup(w io.Writer, s Setup, f Format) error {
	doc := s.Doc()
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("WriteSetup: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("WriteSetup: %w", err)
		}
		return nil
	}

	return fmt.Errorf("WriteSetup: %w: %q", ErrUnknownFormat, f)
}
