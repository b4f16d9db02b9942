/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package questions

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

//go:embed packs/*
var builtin embed.FS

var ErrNoPacks = errors.New("no valid question packs found")

// Library holds every loaded pack by name.
type Library struct {
	packs map[string]*Pack
}

func NewLibrary(packs ...*Pack) (*Library, error) {
	l := &Library{packs: make(map[string]*Pack, len(packs))}

	for _, p := range packs {
		if _, exists := l.packs[p.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate pack name %q", ErrInvalidPack, p.Name)
		}

		l.packs[p.Name] = p
	}

	if len(l.packs) == 0 {
		return nil, ErrNoPacks
	}

	return l, nil
}

// Builtin returns the packs compiled into the binary.
func Builtin(logger zerolog.Logger) (*Library, error) {
	sub, err := fs.Sub(builtin, "packs")
	if err != nil {
		return nil, err
	}

	return load(sub, logger)
}

// Load reads every .json, .yaml and .yml pack in dir. Packs that fail to
// parse or validate are skipped with a warning; at least one must load.
func Load(dir string, logger zerolog.Logger) (*Library, error) {
	return load(os.DirFS(dir), logger)
}

func load(fsys fs.FS, logger zerolog.Logger) (*Library, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	var packs []*Pack

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		file := entry.Name()
		ext := filepath.Ext(file)

		switch strings.ToLower(ext) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			logger.Warn().Err(err).Str("file", file).Msg("Skipping unreadable question pack")

			continue
		}

		p, err := Parse(strings.TrimSuffix(file, ext), data)
		if err != nil {
			logger.Warn().Err(err).Str("file", file).Msg("Skipping invalid question pack")

			continue
		}

		logger.Info().
			Str("pack", p.Name).
			Int("early_rounds", len(p.EarlyRounds)).
			Int("final_round", len(p.FinalRound)).
			Msg("Loaded question pack")

		packs = append(packs, p)
	}

	return NewLibrary(packs...)
}

// Names returns the pack names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.packs))

	for name := range l.packs {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

func (l *Library) Pack(name string) (*Pack, bool) {
	p, ok := l.packs[name]

	return p, ok
}

// Default returns the named pack, or the first pack by name when preferred
// is empty.
func (l *Library) Default(preferred string) (*Pack, error) {
	if preferred == "" {
		preferred = l.Names()[0]
	}

	p, ok := l.packs[preferred]
	if !ok {
		return nil, fmt.Errorf("unknown question pack %q", preferred)
	}

	return p, nil
}
