// Package savefile writes portable, compressed snapshots of a simulation.
//
// A save file is a zstd stream holding two JSON documents: a one-line
// Header followed by the engine.State it describes.
package savefile

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/engine"
)

// Format identifies heartweek save files.
const Format = "heartweek-save"

// ErrFormat is returned for files that are not heartweek saves.
var ErrFormat = errors.New("savefile: not a heartweek save")

// Header describes a save without decoding the full state.
type Header struct {
	Format    string         `json:"format"`
	Version   int            `json:"version"`
	SaveID    string         `json:"save_id"`
	Date      calendar.Date  `json:"date"`
	Phase     calendar.Phase `json:"phase"`
	CreatedAt time.Time      `json:"created_at"`
}

// Write stores st at path, replacing any existing file atomically.
func Write(path string, st engine.State) (Header, error) {
	h := Header{
		Format:    Format,
		Version:   st.Version,
		SaveID:    uuid.NewString(),
		Date:      st.Date,
		Phase:     st.Phase,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Header{}, err
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return Header{}, err
	}
	if err := encode(f, h, st); err != nil {
		f.Close()
		os.Remove(tmp)
		return Header{}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return Header{}, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Header{}, err
	}
	return h, nil
}

func encode(w io.Writer, h Header, st engine.State) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	zw, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(zw)
	if err := enc.Encode(h); err != nil {
		zw.Close()
		return fmt.Errorf("encode header: %w", err)
	}
	if err := enc.Encode(st); err != nil {
		zw.Close()
		return fmt.Errorf("encode state: %w", err)
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadHeader decodes only the header of the save at path.
func ReadHeader(path string) (Header, error) {
	h, _, err := read(path, false)
	return h, err
}

// Read decodes the save at path.
func Read(path string) (Header, engine.State, error) {
	return read(path, true)
}

func read(path string, full bool) (Header, engine.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, engine.State{}, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(bufio.NewReader(f))
	if err != nil {
		return Header{}, engine.State{}, err
	}
	defer zr.Close()

	dec := json.NewDecoder(zr)
	var h Header
	if err := dec.Decode(&h); err != nil {
		return Header{}, engine.State{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if h.Format != Format {
		return Header{}, engine.State{}, fmt.Errorf("%w: format %q", ErrFormat, h.Format)
	}
	if h.Version > engine.SaveVersion {
		return h, engine.State{}, fmt.Errorf("save %s has version %d, newest supported is %d", h.SaveID, h.Version, engine.SaveVersion)
	}
	if !full {
		return h, engine.State{}, nil
	}

	var st engine.State
	if err := dec.Decode(&st); err != nil {
		return h, engine.State{}, fmt.Errorf("decode state: %w", err)
	}
	if st.Date != h.Date || st.Phase != h.Phase {
		return h, engine.State{}, fmt.Errorf("%w: header %s %s does not match state %s %s",
			ErrFormat, h.Date, h.Phase, st.Date, st.Phase)
	}
	return h, st, nil
}
