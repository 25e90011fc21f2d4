// Package language identifies the language of extracted document text.
package language

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// ErrUndetermined is returned when no language can be assigned to the text.
var ErrUndetermined = errors.New("language undetermined")

// Detector runs statistical language identification.
type Detector struct {
	options whatlanggo.Options
}

// NewDetector returns a Detector. When candidates is non-empty detection is
// restricted to those languages (ISO 639-1 or 639-3 codes).
func NewDetector(candidates ...string) *Detector {
	d := &Detector{}
	whitelist := make(map[whatlanggo.Lang]bool, len(candidates))
	for _, c := range candidates {
		base, err := language.ParseBase(strings.TrimSpace(c))
		if err != nil {
			continue
		}
		if l := whatlanggo.CodeToLang(base.ISO3()); l >= 0 {
			whitelist[l] = true
		}
	}
	if len(whitelist) > 0 {
		d.options.Whitelist = whitelist
	}
	return d
}

// Detect returns the base language code of text, e.g. "es" or "en".
func (d *Detector) Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrUndetermined
	}
	info := whatlanggo.DetectWithOptions(text, d.options)
	if info.Lang < 0 || info.Script == nil {
		return "", ErrUndetermined
	}
	code := info.Lang.Iso6391()
	if code == "" {
		code = info.Lang.Iso6393()
	}
	base, err := language.ParseBase(code)
	if err != nil {
		return "", errors.Join(ErrUndetermined, err)
	}
	return base.String(), nil
}
