package tables

import (
	"log/slog"
	"sync"

	"github.com/notsnake/pdftables/internal/parser"
	"github.com/notsnake/pdftables/logging"
	deepcopy "github.com/tiendc/go-deepcopy"
)

// FontCache is an explicit, caller-owned cache from page object number to
// the FontSet built from that page's font resources. It replaces the
// reference implementation's process-wide singleton (Design Note 9.1):
// callers construct one per extraction and discard it when done.
type FontCache struct {
	mu   sync.Mutex
	sets map[int]*FontSet
}

// NewFontCache returns an empty cache.
func NewFontCache() *FontCache {
	return &FontCache{sets: make(map[int]*FontSet)}
}

// ProcessFonts returns the FontSet for pageID, building and caching it on
// first encounter by walking page's (possibly inherited) /Resources/Font
// dictionary and parsing each font's /ToUnicode stream.
func (fc *FontCache) ProcessFonts(pageID int, page *parser.Dictionary, reader *parser.Reader) *FontSet {
	fc.mu.Lock()
	if fs, ok := fc.sets[pageID]; ok {
		fc.mu.Unlock()
		return fs
	}
	fc.mu.Unlock()

	fs := searchFonts(pageID, page, reader)

	fc.mu.Lock()
	fc.sets[pageID] = fs
	fc.mu.Unlock()
	return fs
}

func searchFonts(pageID int, page *parser.Dictionary, reader *parser.Reader) *FontSet {
	fs := NewFontSet()

	resources := reader.GetInheritedResources(page)
	if resources == nil {
		return fs
	}

	fontsDict, ok := reader.Resolve(resources.Get("Font")).(*parser.Dictionary)
	if !ok {
		return fs
	}

	for _, name := range fontsDict.Keys() {
		fontObj, ok := reader.Resolve(fontsDict.Get(name)).(*parser.Dictionary)
		if !ok {
			continue
		}

		toUnicode := fontObj.Get("ToUnicode")
		if toUnicode == nil {
			continue
		}

		stream, ok := reader.Resolve(toUnicode).(*parser.Stream)
		if !ok {
			continue
		}

		data, err := reader.GetStreamData(stream)
		if err != nil {
			logging.Logger().Debug("font cache: failed to decode ToUnicode stream",
				logging.PageAttr(pageID), slog.String("font", name), slog.Any("err", err))
			continue
		}

		cmap := ParseToUnicodeStream(parser.TokenizeContentStream(data))
		if cmap.Len() > 0 {
			fs.Fonts[name] = cmap
		}
	}

	return fs
}

// Snapshot deep-copies the FontSet cached for pageID, so a test can capture
// a result and then mutate or Reset the live cache without the snapshot
// changing underneath it. Returns nil if pageID was never processed.
func (fc *FontCache) Snapshot(pageID int) *FontSet {
	fc.mu.Lock()
	fs, ok := fc.sets[pageID]
	fc.mu.Unlock()
	if !ok {
		return nil
	}

	var clone FontSet
	if err := deepcopy.Copy(&clone, fs); err != nil {
		logging.Logger().Debug("font cache: snapshot deep-copy failed", slog.Any("err", err))
		return fs
	}
	return &clone
}

// Reset clears every cached FontSet. Called via defer at the end of every
// top-level extraction so a panic mid-walk still leaves the cache empty for
// the next call.
func (fc *FontCache) Reset() {
	fc.mu.Lock()
	fc.sets = make(map[int]*FontSet)
	fc.mu.Unlock()
}
