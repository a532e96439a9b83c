package overlay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

// ErrMalformedRow is wrapped by parse errors for rows that do not have
// an icon, a title and three coordinates.
var ErrMalformedRow = errors.New("overlay: malformed row")

// FallbackLang is used when no dataset exists for the requested language.
const FallbackLang = "en"

// Entry is one point of interest.
type Entry struct {
	Icon     string
	Title    string
	Position mgl64.Vec3
}

// Dataset is a parsed POI file.
type Dataset struct {
	Lang    string
	Path    string
	Entries []Entry
}

// FileName returns the dataset file name for lang.
func FileName(lang string) string {
	return "dataAmenities_" + lang + ".csv"
}

// NormalizeLang reduces a locale such as "de-AT" to its two-letter language.
func NormalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if len(lang) > 2 {
		lang = lang[:2]
	}
	if lang == "" {
		return FallbackLang
	}
	return lang
}

// ParseCSV reads semicolon separated "icon;title;x;y;z" rows.
func ParseCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	var out []Entry
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("overlay: read csv: %w", err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: %d fields: %w", line, len(rec), ErrMalformedRow)
		}
		var xyz [3]float64
		for i := range xyz {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[2+i]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: coordinate %q: %w", line, rec[2+i], ErrMalformedRow)
			}
			xyz[i] = v
		}
		out = append(out, Entry{
			Icon:     strings.TrimSpace(rec[0]),
			Title:    strings.TrimSpace(rec[1]),
			Position: mgl64.Vec3{xyz[0], xyz[1], xyz[2]},
		})
	}
}

// LoadDataset reads the dataset for lang from dir, falling back to the
// English file when the localized one cannot be opened.
func LoadDataset(dir, lang string, log zerolog.Logger) (*Dataset, error) {
	lang = NormalizeLang(lang)
	path := filepath.Join(dir, FileName(lang))
	f, err := os.Open(path)
	if err != nil && lang != FallbackLang {
		fallback := filepath.Join(dir, FileName(FallbackLang))
		log.Warn().Err(err).Str("fallback", fallback).Msg("dataset missing, using fallback")
		lang, path = FallbackLang, fallback
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	entries, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &Dataset{Lang: lang, Path: path, Entries: entries}, nil
}
